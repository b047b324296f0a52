package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prbarcelon/cliproxy/internal/config"
	"github.com/prbarcelon/cliproxy/internal/protocol"
)

// Result is one response from the CLI proxy. Body is the raw response text.
type Result struct {
	URL        string
	StatusCode int
	Body       string
	Duration   time.Duration
}

// Client forwards invocations to the CLI proxy with a single GET each. When
// HistoryDB is set, every Do call is recorded in that SQLite file.
type Client struct {
	BaseURL   string
	Policy    protocol.Policy
	Auth      string
	HTTP      *http.Client
	Logger    *slog.Logger
	HistoryDB string
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func New(cfg config.EndpointConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = discardLogger
	}
	return &Client{
		BaseURL: cfg.BaseURL,
		Policy:  cfg.Policy,
		Auth:    cfg.Auth,
		HTTP:    &http.Client{Timeout: cfg.Timeout},
		Logger:  logger,
	}
}

// FromConfig builds a Client for cfg, with history recording when enabled.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	c := New(cfg.Endpoint, logger)
	if cfg.History.Enabled {
		c.HistoryDB = cfg.History.DBPath
	}
	return c
}

func (c *Client) Encode(inv protocol.Invocation) (string, error) {
	if len(inv.Args) == 0 {
		return "", &UsageError{}
	}
	return protocol.Encode(c.BaseURL, c.Policy, c.Auth, inv)
}

// Do encodes inv and performs the request. On a non-2xx status both the
// Result and a *RemoteError are returned.
func (c *Client) Do(ctx context.Context, inv protocol.Invocation) (*Result, error) {
	endpoint, err := c.Encode(inv)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	res, err := c.Get(ctx, endpoint)
	if c.HistoryDB != "" {
		c.record(historyItem(started, c.Policy, endpoint, inv, res, err))
	}
	return res, err
}

func (c *Client) Get(ctx context.Context, endpoint string) (*Result, error) {
	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	c.logger().Debug("forwarding invocation", "url", endpoint)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResponseReadError{URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	result := &Result{
		URL:        endpoint,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Duration:   time.Since(started),
	}
	c.logger().Debug("cli proxy responded", "status", resp.StatusCode, "bytes", len(body), "duration", result.Duration)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &RemoteError{URL: endpoint, StatusCode: resp.StatusCode}
	}
	return result, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}
