// Package v1 provides the console's v1 HTTP API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/nexus/internal/config"
	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	config  *config.Config
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		config:  cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// State and runs
	e.GET("/v1/state", h.GetState)
	e.POST("/v1/runs", h.StartRun)
	e.POST("/v1/refresh", h.Refresh)

	// Dependent actions
	e.PUT("/v1/scenario", h.SetScenario)
	e.POST("/v1/simulations", h.RunSimulation)
	e.POST("/v1/overrides", h.SubmitOverride)

	// Copilot
	e.GET("/v1/copilot/messages", h.GetChat)
	e.POST("/v1/copilot/messages", h.SendChat)

	// Projections
	e.GET("/v1/views/:view", h.GetView)
	e.GET("/v1/journal", h.GetJournal)
	e.GET("/v1/report", h.GetReport)

	e.GET("/health", h.Health)
}

// Health returns health status. The backend is probed but its failure
// does not make the console unhealthy.
func (h *Handler) Health(c echo.Context) error {
	backendStatus := "healthy"
	if err := h.service.Backend().Health(c.Request().Context()); err != nil {
		backendStatus = "unreachable"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
		"backend": backendStatus,
	})
}

// errorResponse maps a service error onto a status code.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNoActiveRun):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPrecondition):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrTransport):
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}
