// Package backend provides clients for the remote analysis backend.
package backend

import (
	"context"
	"io"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// Backend defines the operations the console consumes from the analysis
// service. Every error returned wraps domain.ErrTransport.
type Backend interface {
	Analyze(ctx context.Context, query string) (*domain.Result, error)
	History(ctx context.Context) ([]domain.HistoryEntry, error)
	Trends(ctx context.Context) ([]domain.TrendPoint, error)
	Simulate(ctx context.Context, req domain.SimulateRequest) (*domain.SimulationResult, error)
	Override(ctx context.Context, req domain.OverrideRequest) (*domain.OverrideAck, error)
	FetchReport(ctx context.Context, reportPath string) (*Artifact, error)
	Health(ctx context.Context) error
}

// Artifact is a downloadable document served by the backend. The caller
// must close Body.
type Artifact struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Ensure Client implements Backend interface.
var _ Backend = (*Client)(nil)
