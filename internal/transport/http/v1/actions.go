package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// OverrideRequest is the body of POST /v1/overrides.
type OverrideRequest struct {
	Reason string `json:"reason"`
}

// SetScenario replaces the what-if draft.
// PUT /v1/scenario
func (h *Handler) SetScenario(c echo.Context) error {
	var sc domain.Scenario
	if err := c.Bind(&sc); err != nil {
		return badRequest(c, "invalid request body")
	}
	h.service.SetScenario(sc)
	return c.JSON(http.StatusOK, sc)
}

// RunSimulation runs a what-if projection against the active run. Without
// a body the current scenario draft is used.
// POST /v1/simulations
func (h *Handler) RunSimulation(c echo.Context) error {
	sc := h.service.Store().Scenario()
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&sc); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	res, err := h.service.RunSimulation(c.Request().Context(), sc)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SubmitOverride records an executive override.
// POST /v1/overrides
func (h *Handler) SubmitOverride(c echo.Context) error {
	var req OverrideRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ack, err := h.service.SubmitOverride(c.Request().Context(), req.Reason)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":  ack.RunID,
		"status":  ack.Status,
		"message": domain.NoticeOverridePersisted,
	})
}
