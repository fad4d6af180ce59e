package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Session is one call session as reported by the server directory.
type Session struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

// Client lists call sessions from the server's HTTP directory. The most
// recent successful listing is cached; a failed refresh keeps showing it.
type Client struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	cached []Session
}

// NewClient builds a directory client for the HTTP base URL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return &Client{
		url:    baseURL,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// ListSessions fetches the session list. On failure the previous successful
// listing is returned alongside the error so callers keep displaying it.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+"/sessions", nil)
	if err != nil {
		return c.Cached(), err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("session listing failed", "error", err)
		return c.Cached(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("sessions: status %d", resp.StatusCode)
		slog.Warn("session listing failed", "error", err)
		return c.Cached(), err
	}

	var sessions []Session
	if err = json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		slog.Warn("session listing decode failed", "error", err)
		return c.Cached(), err
	}

	c.mu.Lock()
	c.cached = sessions
	c.mu.Unlock()
	return sessions, nil
}

// Cached returns the last successful listing without touching the network.
func (c *Client) Cached() []Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Session, len(c.cached))
	copy(out, c.cached)
	return out
}
