package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// MockClient is an in-process Backend used for demos and tests. It keeps
// its own run history so the history and trends endpoints reflect the
// analyses it has served.
type MockClient struct {
	mu      sync.Mutex
	history []domain.HistoryEntry
	latency time.Duration
}

// NewMockClient creates a new mock backend. latency delays every Analyze
// call to exercise the progress timer.
func NewMockClient(latency time.Duration) *MockClient {
	return &MockClient{latency: latency}
}

// Ensure MockClient implements Backend interface.
var _ Backend = (*MockClient)(nil)

// Analyze returns a canned result for query.
func (m *MockClient) Analyze(ctx context.Context, query string) (*domain.Result, error) {
	if m.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())
		case <-time.After(m.latency):
		}
	}

	runID := "run_" + uuid.New().String()[:8]
	decision := "Maintain current controls; escalate 3 flagged Electronics transactions for review."
	if strings.Contains(strings.ToLower(query), "vip") {
		decision = "Relax VIP risk allowance to 0.75 with quarterly review."
	}
	confidence := 0.92

	res := &domain.Result{
		RunID: runID,
		Steps: []json.RawMessage{
			mustRaw(fmt.Sprintf("Plan drafted for: %s", query)),
			mustRaw("Querying TransactionDB"),
			mustRaw("Removed 12 duplicate rows; imputed 4 missing amounts"),
			mustRaw(map[string]any{"model": "IsolationForest", "anomalies": 3}),
			mustRaw("Fraud concentration in Electronics | VIP churn risk stable"),
			mustRaw("Decision persisted with audit trail"),
		},
		Data: domain.ResultData{
			Log:         "Querying TransactionDB",
			CleaningLog: "Removed 12 duplicate rows; imputed 4 missing amounts",
			Charts:      []string{"charts/fraud_distribution.png", "charts/risk_by_segment.png"},
		},
		Insights: "Fraud concentration in Electronics | VIP churn risk stable | Weekend spikes detected",
		Decision: decision,
		Debate: []string{
			"Analyst: Electronics shows a 3x anomaly rate over baseline.",
			"CDO: Agreed, but VIP friction must stay below current levels.",
			"Analyst: Recommend targeted review instead of a blanket freeze.",
		},
		Explanations: map[string]domain.Explanation{
			"fraud_score": {
				PlainEnglish: "High transaction amounts in Electronics drive the score.",
				FeatureImportance: map[string]float64{
					"amount":   0.62,
					"category": 0.28,
					"hour":     0.10,
				},
				ConfidenceScore: &confidence,
			},
		},
		ReportPath: "reports/Executive_Summary_" + time.Now().Format("20060102_150405") + ".md",
	}

	m.mu.Lock()
	m.history = append([]domain.HistoryEntry{{
		RunID:     runID,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Query:     query,
		Decision:  decision,
	}}, m.history...)
	m.mu.Unlock()

	return res, nil
}

// History returns the served runs, newest first.
func (m *MockClient) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HistoryEntry, len(m.history))
	copy(out, m.history)
	return out, nil
}

// Trends returns one synthetic point per served run, oldest first.
func (m *MockClient) Trends(ctx context.Context) ([]domain.TrendPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.history)
	points := make([]domain.TrendPoint, 0, n)
	for i := 0; i < n; i++ {
		entry := m.history[n-1-i]
		points = append(points, domain.TrendPoint{
			Timestamp:  entry.Timestamp,
			AvgRisk:    0.3 + float64((i*5)%40)/100,
			FraudCases: 2 + (i*2)%10,
		})
	}
	return points, nil
}

// Simulate projects the scenario with fixed baseline figures.
func (m *MockClient) Simulate(ctx context.Context, req domain.SimulateRequest) (*domain.SimulationResult, error) {
	if !m.knows(req.RunID) {
		return nil, fmt.Errorf("%w: backend rejected request: Run not found", domain.ErrTransport)
	}

	res := &domain.SimulationResult{RunID: req.RunID, ValueAfter: req.Value}
	switch domain.ScenarioType(req.Type) {
	case domain.ScenarioRisk:
		res.Parameter = "VIP Risk Allowance"
		res.ValueBefore = 0.7
		affected := int(absFloat(req.Value-0.7) * 40)
		res.VIPsAffected = &affected
		if req.Value > 0.7 {
			res.BusinessImpact = "Increasing allowance improves VIP retention but relaxes governance."
		} else {
			res.BusinessImpact = "Reducing allowance tightens security but may churn high-value clients."
		}
	default:
		res.Parameter = "Fraud Threshold"
		res.ValueBefore = 0.5
		before := 20
		after := int((1 - req.Value) * 40)
		delta := after - before
		res.CountBefore, res.CountAfter, res.Delta = &before, &after, &delta
		if req.Value < 0.5 {
			res.BusinessImpact = "Lowering threshold increases security but raises false positives."
		} else {
			res.BusinessImpact = "Raising threshold reduces false positives but increases risk of undetected fraud."
		}
	}
	return res, nil
}

// Override acknowledges every override for a known run.
func (m *MockClient) Override(ctx context.Context, req domain.OverrideRequest) (*domain.OverrideAck, error) {
	if !m.knows(req.RunID) {
		return nil, fmt.Errorf("%w: backend rejected request: Run not found", domain.ErrTransport)
	}
	return &domain.OverrideAck{RunID: req.RunID, Status: "Override recorded and logged for governance."}, nil
}

// FetchReport renders a small markdown summary.
func (m *MockClient) FetchReport(ctx context.Context, reportPath string) (*Artifact, error) {
	clean, err := cleanArtifactPath(reportPath)
	if err != nil {
		return nil, err
	}
	body := fmt.Sprintf("# Executive Summary\n\nSource: %s\n", clean)
	return &Artifact{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentType:   "text/markdown; charset=utf-8",
		ContentLength: int64(len(body)),
	}, nil
}

// Health always succeeds.
func (m *MockClient) Health(ctx context.Context) error {
	return nil
}

func (m *MockClient) knows(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.history {
		if h.RunID == runID {
			return true
		}
	}
	return false
}

func mustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
