package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

func TestClientAnalyze(t *testing.T) {
	var gotReq domain.AnalyzeRequest
	var gotRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		gotRequestID = r.Header.Get(RequestIDHeader)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read body: %v", err)
		}
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"run_id":"R1","steps":["plan",{"k":1}],"insights":"a | b","decision":"Hold","debate":["x: y"],"data":{"log":"L","cleaning_log":"C"},"explanations":{"score":{"plain_english":"pe","feature_importance":{"amount":0.5},"confidence_score":0.9}},"report_path":"reports\\r.md"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, time.Second)
	res, err := client.Analyze(context.Background(), "fraud?")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if gotReq.Query != "fraud?" {
		t.Fatalf("unexpected query: %q", gotReq.Query)
	}
	if !strings.HasPrefix(gotRequestID, "req_") {
		t.Fatalf("missing request id header: %q", gotRequestID)
	}
	if res.RunID != "R1" || res.Decision != "Hold" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Step(0) != "plan" || res.Step(1) != `{"k":1}` {
		t.Fatalf("unexpected steps: %q %q", res.Step(0), res.Step(1))
	}
	if res.InsightSegment(1) != "b" {
		t.Fatalf("unexpected insight segment: %q", res.InsightSegment(1))
	}
	exp, ok := res.Explanations["score"]
	if !ok || exp.ConfidenceScore == nil || *exp.ConfidenceScore != 0.9 {
		t.Fatalf("unexpected explanations: %+v", res.Explanations)
	}
}

func TestClientStatusErrorWrapsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, time.Second)
	_, err := client.Analyze(context.Background(), "q")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected backend message in error, got %v", err)
	}
}

func TestClientUnreachableWrapsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client := NewClient(addr, nil, time.Second)
	if err := client.Health(context.Background()); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClientHistoryAndTrends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/history":
			fmt.Fprint(w, `[{"run_id":"R2","timestamp":"t2","query":"q2","decision":"d2"},{"run_id":"R1","timestamp":"t1","query":"q1","decision":"d1"}]`)
		case "/trends":
			fmt.Fprint(w, `[{"timestamp":"t1","avg_risk":0.3,"fraud_cases":2},{"timestamp":"t2","avg_risk":0.35,"fraud_cases":4}]`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, time.Second)
	history, err := client.History(context.Background())
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 || history[0].RunID != "R2" {
		t.Fatalf("unexpected history: %+v", history)
	}

	trends, err := client.Trends(context.Background())
	if err != nil {
		t.Fatalf("Trends failed: %v", err)
	}
	if len(trends) != 2 || trends[1].FraudCases != 4 {
		t.Fatalf("unexpected trends: %+v", trends)
	}
}

func TestClientSimulate(t *testing.T) {
	var gotReq domain.SimulateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simulate" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		fmt.Fprint(w, `{"parameter":"Fraud Threshold","value_before":0.5,"value_after":0.3,"count_before":10,"count_after":14,"delta":4,"business_impact":"more alerts"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, time.Second)
	res, err := client.Simulate(context.Background(), domain.SimulateRequest{RunID: "R1", Type: "fraud", Value: 0.3})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if gotReq.RunID != "R1" || gotReq.Type != "fraud" || gotReq.Value != 0.3 {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
	if res.RunID != "R1" || res.Parameter != "Fraud Threshold" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Delta == nil || *res.Delta != 4 || res.VIPsAffected != nil {
		t.Fatalf("unexpected counts: %+v", res)
	}
}

func TestClientSimulateRejectedWithOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"Run not found"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, time.Second)
	_, err := client.Simulate(context.Background(), domain.SimulateRequest{RunID: "R9", Type: "risk", Value: 0.8})
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Run not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientOverride(t *testing.T) {
	var gotReq domain.OverrideRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/override" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		fmt.Fprint(w, `{"status":"Override recorded and logged for governance."}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, time.Second)
	ack, err := client.Override(context.Background(), domain.NewOverrideRequest("R1", "ok"))
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	if gotReq.TargetType != domain.OverrideTargetType || gotReq.TargetID != domain.OverrideTargetID || gotReq.NewValue != domain.OverrideNewValue {
		t.Fatalf("unexpected override request: %+v", gotReq)
	}
	if gotReq.Reason != "ok" || ack.RunID != "R1" || ack.Status == "" {
		t.Fatalf("unexpected ack: %+v (req %+v)", ack, gotReq)
	}
}

func TestClientFetchReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/r.md" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprint(w, "# Report")
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, time.Second)
	art, err := client.FetchReport(context.Background(), `reports\r.md`)
	if err != nil {
		t.Fatalf("FetchReport failed: %v", err)
	}
	defer art.Body.Close()
	body, _ := io.ReadAll(art.Body)
	if string(body) != "# Report" || art.ContentType != "text/markdown" {
		t.Fatalf("unexpected artifact: %q %q", body, art.ContentType)
	}

	if _, err := client.FetchReport(context.Background(), "missing.md"); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if _, err := client.FetchReport(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestCleanArtifactPath(t *testing.T) {
	tests := map[string]string{
		`reports\a.md`:        "reports/a.md",
		"/reports/a.md":       "reports/a.md",
		"../../etc/passwd":    "etc/passwd",
		"reports/./x/../b.md": "reports/b.md",
	}
	for in, want := range tests {
		got, err := cleanArtifactPath(in)
		if err != nil {
			t.Fatalf("cleanArtifactPath(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("cleanArtifactPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientRateLimiterRespectsContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := NewClient(server.URL, limiter, time.Second)
	if _, err := client.History(context.Background()); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.History(ctx); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected limiter wait to fail, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one backend call, got %d", calls.Load())
	}
}
