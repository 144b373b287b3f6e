package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// NewHTTPClient returns a client with a fixed per request timeout. Redirects
// are followed, HEAD requests included.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// do issues one request with the configured User-Agent. The caller owns the
// response body.
func (p *Prober) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	return resp, nil
}

// drain discards what is left of a body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// classify names a transport failure for failure tables.
func classify(err error) string {
	if err == nil {
		return ""
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns error"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection error"
	}

	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	return "request error"
}
