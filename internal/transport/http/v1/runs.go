package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StartRunRequest is the body of POST /v1/runs.
type StartRunRequest struct {
	Query string `json:"query"`
}

// GetState returns the full console snapshot.
// GET /v1/state
func (h *Handler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Store().Snapshot())
}

// StartRun starts an analysis in the background.
// POST /v1/runs
func (h *Handler) StartRun(c echo.Context) error {
	var req StartRunRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	// An empty query is forwarded as is.
	gen := h.service.StartRun(req.Query)
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"generation": gen,
	})
}

// Refresh re-fetches history and trends.
// POST /v1/refresh
func (h *Handler) Refresh(c echo.Context) error {
	if err := h.service.Refresh(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	snap := h.service.Store().Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"history": snap.History,
		"trends":  snap.Trends,
	})
}
