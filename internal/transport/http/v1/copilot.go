package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ChatRequest is the body of POST /v1/copilot/messages.
type ChatRequest struct {
	Text string `json:"text"`
}

// GetChat returns the copilot conversation.
// GET /v1/copilot/messages
func (h *Handler) GetChat(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": h.service.Store().Snapshot().Chat,
	})
}

// SendChat posts an operator message. The reply arrives asynchronously.
// POST /v1/copilot/messages
func (h *Handler) SendChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	accepted := h.service.SendChat(req.Text)
	return c.JSON(http.StatusAccepted, map[string]bool{"accepted": accepted})
}
