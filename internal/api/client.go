package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const clientTimeout = 10 * time.Second

// Client is a thin HTTP client for the control API, used by the command
// line and the interactive status view.
type Client struct {
	base string
	http *http.Client
}

// NewClient targets the control API at the given host:port address.
func NewClient(addr string) *Client {
	return &Client{
		base: "http://" + addr,
		http: &http.Client{Timeout: clientTimeout},
	}
}

// envelope also captures the error field carried by 4xx/5xx bodies.
type envelope struct {
	Result
	Error string `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (Result, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, fmt.Errorf("request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if body.Error != "" {
		return body.Result, fmt.Errorf("control API: %s", body.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return body.Result, fmt.Errorf("control API: unexpected status %d", resp.StatusCode)
	}
	return body.Result, nil
}

// Start asks the service to start the tunnel for the given user and
// application name.
func (c *Client) Start(ctx context.Context, username, appname string) (Result, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("appname", appname)
	return c.get(ctx, "/start", query)
}

// Stop asks the service to stop the tunnel.
func (c *Client) Stop(ctx context.Context) (Result, error) {
	return c.get(ctx, "/stop", nil)
}

// Status fetches the current tunnel state.
func (c *Client) Status(ctx context.Context) (Result, error) {
	return c.get(ctx, "/status", nil)
}

// Ping verifies the control API itself is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/ping", nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("control API: unexpected ping status %q", body.Status)
	}
	return nil
}
