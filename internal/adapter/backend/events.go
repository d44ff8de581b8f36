package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
)

// EventHandler receives backend broadcast events.
type EventHandler func(ctx context.Context, evt domain.BackendEvent)

// EventListener subscribes to the backend /ws broadcast channel and
// reconnects until its context is cancelled.
type EventListener struct {
	url           string
	reconnectWait time.Duration
	dialer        *websocket.Dialer
}

// NewEventListener creates a listener for the backend at baseURL.
func NewEventListener(baseURL string, reconnectWait time.Duration) (*EventListener, error) {
	wsURL, err := EventsURL(baseURL)
	if err != nil {
		return nil, err
	}
	if reconnectWait <= 0 {
		reconnectWait = 5 * time.Second
	}
	return &EventListener{
		url:           wsURL,
		reconnectWait: reconnectWait,
		dialer:        websocket.DefaultDialer,
	}, nil
}

// EventsURL converts an http(s) backend URL into its ws(s) /ws endpoint.
func EventsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Run connects and dispatches events to handler until ctx is done.
func (l *EventListener) Run(ctx context.Context, handler EventHandler) error {
	for {
		err := l.listen(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		logger.Log.WithError(err).WithField("url", l.url).Warn("backend event stream disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnectWait):
		}
	}
}

func (l *EventListener) listen(ctx context.Context, handler EventHandler) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	logger.Log.WithField("url", l.url).Info("subscribed to backend events")

	// Unblock ReadMessage on shutdown.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var evt domain.BackendEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			logger.Log.WithError(err).Debug("ignoring malformed backend event")
			continue
		}
		handler(ctx, evt)
	}
}
