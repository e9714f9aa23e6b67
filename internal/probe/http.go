package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodyBytes bounds how much of the companion response is read when
// searching for the liveness token.
const maxBodyBytes = 4096

// pingToken is the literal the companion response must contain,
// case-insensitively, for a probe to count as success. The companion
// historically answers either a bare "pong" or a JSON document embedding
// it, so the match is deliberately loose.
const pingToken = "pong"

type httpProber struct {
	client *http.Client
	url    string
}

// NewHTTP builds a prober that issues a GET against the companion ping URL
// and succeeds only on a 200 response whose body contains the pong token.
func NewHTTP(url string, timeout time.Duration) Prober {
	return &httpProber{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

func (p *httpProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("User-Agent", "RocketMan-Service")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d", resp.StatusCode)
	}
	if !strings.Contains(strings.ToLower(string(body)), pingToken) {
		return fmt.Errorf("body %q does not contain %q", truncate(string(body), 64), pingToken)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
