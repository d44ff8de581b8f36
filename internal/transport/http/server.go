// Package http provides the HTTP server of the decision console.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/nexus/internal/config"
	"github.com/xiaot623/gogo/nexus/internal/service"
	v1 "github.com/xiaot623/gogo/nexus/internal/transport/http/v1"
	"github.com/xiaot623/gogo/nexus/internal/transport/ws"
)

// NewServer creates and configures the console HTTP server: the v1 API and
// the live WebSocket endpoint.
func NewServer(cfg *config.Config, svc *service.Service, wsServer *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, cfg)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	if wsServer != nil {
		e.GET("/ws", wsServer.HandleWebSocket)
	}

	return e
}
