package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vip-billing/internal/infra/metrics"
)

const maxResponseBody = 1 << 20

// doJSON sends req, requires a 2xx answer and decodes the body into out.
func doJSON(ctx context.Context, client *http.Client, provider, op string, req *http.Request, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveGateway(provider, op, start, err) }()

	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", provider, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", provider, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Provider: provider, Op: op, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", provider, op, err)
	}
	return nil
}

// HTTPError is a non-success answer from a gateway.
type HTTPError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %s", e.Provider, e.Op, e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
