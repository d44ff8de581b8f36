package backend

import (
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/xiaot623/gogo/nexus/internal/logger"
)

const (
	// EnvNexusMode is the environment variable name for mode selection.
	EnvNexusMode = "NEXUS_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Options configures a backend created by New.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	RateLimitQPS   float64
	RateLimitBurst int
	MockLatency    time.Duration
}

// New creates a Backend based on the NEXUS_MODE environment variable.
// If NEXUS_MODE=MOCK, returns a MockClient; otherwise returns a real Client.
func New(opts Options) Backend {
	if os.Getenv(EnvNexusMode) == ModeMock {
		logger.Log.Info("NEXUS_MODE=MOCK detected, using mock backend")
		return NewMockClient(opts.MockLatency)
	}

	var limiter *rate.Limiter
	if opts.RateLimitQPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitQPS), burst)
	}
	return NewClient(opts.BaseURL, limiter, opts.RequestTimeout)
}
