package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/xiaot623/gogo/nexus/internal/domain"
)

// RequestIDHeader carries the client-generated id of each backend call.
const RequestIDHeader = "X-Request-ID"

// Client is an HTTP client for the analysis backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration
}

// NewClient creates a backend client. limiter may be nil to disable rate
// limiting. requestTimeout bounds every call except Analyze, whose
// duration is governed by the caller's context.
func NewClient(baseURL string, limiter *rate.Limiter, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{},
		limiter:        limiter,
		requestTimeout: requestTimeout,
	}
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorResponse is the error envelope some backend endpoints return with
// a 200 status.
type errorResponse struct {
	Error  string `json:"error"`
	Detail any    `json:"detail"`
}

// Analyze calls POST /analyze.
func (c *Client) Analyze(ctx context.Context, query string) (*domain.Result, error) {
	var res domain.Result
	if err := c.doJSON(ctx, http.MethodPost, "/analyze", domain.AnalyzeRequest{Query: query}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// History calls GET /history.
func (c *Client) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var entries []domain.HistoryEntry
	if err := c.doJSON(ctx, http.MethodGet, "/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Trends calls GET /trends.
func (c *Client) Trends(ctx context.Context) ([]domain.TrendPoint, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var points []domain.TrendPoint
	if err := c.doJSON(ctx, http.MethodGet, "/trends", nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Simulate calls POST /simulate.
func (c *Client) Simulate(ctx context.Context, req domain.SimulateRequest) (*domain.SimulationResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/simulate", req, &raw); err != nil {
		return nil, err
	}
	if err := rejected(raw); err != nil {
		return nil, err
	}
	var res domain.SimulationResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: unmarshal simulation: %v", domain.ErrTransport, err)
	}
	res.RunID = req.RunID
	return &res, nil
}

// Override calls POST /override.
func (c *Client) Override(ctx context.Context, req domain.OverrideRequest) (*domain.OverrideAck, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/override", req, &raw); err != nil {
		return nil, err
	}
	if err := rejected(raw); err != nil {
		return nil, err
	}
	var ack struct {
		Status string `json:"status"`
	}
	// The acknowledgement body is informational only.
	_ = json.Unmarshal(raw, &ack)
	return &domain.OverrideAck{RunID: req.RunID, Status: ack.Status}, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

// FetchReport downloads GET /{reportPath}. The response body is streamed
// to the caller, so only the rate limiter applies, not requestTimeout.
func (c *Client) FetchReport(ctx context.Context, reportPath string) (*Artifact, error) {
	clean, err := cleanArtifactPath(reportPath)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, "/"+clean, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: report fetch (status %d): %s", domain.ErrTransport, resp.StatusCode, string(body))
	}
	return &Artifact{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", domain.ErrTransport, err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := c.do(ctx, method, p, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body %s: %v", domain.ErrTransport, p, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%w: %s %s: %s", domain.ErrTransport, method, p, errResp.Error)
		}
		return fmt.Errorf("%w: %s %s (status %d): %s", domain.ErrTransport, method, p, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: unmarshal %s: %v", domain.ErrTransport, p, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, p string, body io.Reader) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrTransport, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, "req_"+uuid.New().String()[:8])

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, method, p, err)
	}
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func rejected(raw json.RawMessage) error {
	var errResp errorResponse
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("%w: backend rejected request: %s", domain.ErrTransport, errResp.Error)
	}
	return nil
}

func cleanArtifactPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty report path", domain.ErrTransport)
	}
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: invalid report path %q", domain.ErrTransport, p)
	}
	return clean, nil
}
