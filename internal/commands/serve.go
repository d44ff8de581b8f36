package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/nexus/internal/adapter/backend"
	"github.com/xiaot623/gogo/nexus/internal/hub"
	"github.com/xiaot623/gogo/nexus/internal/logger"
	transport "github.com/xiaot623/gogo/nexus/internal/transport/http"
	"github.com/xiaot623/gogo/nexus/internal/transport/ws"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console HTTP and WebSocket server",
	Long: `Start the console server. It exposes the v1 HTTP API, streams state
snapshots and notices on /ws, and listens to the backend broadcast channel
so runs started elsewhere show up in history and trends.

Example:
  nexus serve --port 8088 --backend http://localhost:8000
  NEXUS_MODE=MOCK nexus serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.HTTPPort = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Log.Info("Starting nexus console...")
		logger.Log.Infof("HTTP Port: %d", cfg.HTTPPort)
		logger.Log.Infof("Backend: %s", cfg.BackendURL)
		logger.Log.Infof("Journal: %s", cfg.DatabaseURL)

		h := hub.NewHub()
		a.store.Subscribe(h.PublishSnapshot)
		a.svc.SetNotifier(h)

		e := transport.NewServer(cfg, a.svc, ws.NewServer(cfg, h, a.svc))

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			h.Run(gctx)
			return nil
		})

		g.Go(func() error {
			addr := fmt.Sprintf(":%d", cfg.HTTPPort)
			logger.Log.Infof("console listening on %s", addr)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Log.Info("Shutting down console...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		})

		// Mount-time fetch of history and trends.
		g.Go(func() error {
			if err := a.svc.Refresh(gctx); err != nil {
				logger.Log.WithError(err).Warn("initial refresh failed")
			}
			return nil
		})

		if cfg.BackendEvents && !a.isMock() {
			listener, err := backend.NewEventListener(cfg.BackendURL, cfg.EventsReconnectWait)
			if err != nil {
				logger.Log.WithError(err).Warn("backend events disabled")
			} else {
				g.Go(func() error {
					return listener.Run(gctx, a.svc.HandleBackendEvent)
				})
			}
		}

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (default: NEXUS_HTTP_PORT or 8088)")
	AddCommand(serveCmd)
}
