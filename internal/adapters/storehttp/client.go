// internal/adapters/storehttp/client.go
package storehttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_radar/internal/adapters/observability"
	"review_radar/internal/domain"
)

// maxBody caps upstream responses; review pages are well below this.
const maxBody = 8 << 20

var (
	ErrNotFound     = errors.New("store: not found")
	ErrUnauthorized = errors.New("store: unauthorized")
	ErrForbidden    = errors.New("store: forbidden")
)

// Client is the shared outbound HTTP layer for store adapters: client-side
// rate limiting, status classification, and outbound metrics. It performs a
// single attempt per call; retries belong to the caller's RetryPolicy.
type Client struct {
	service string
	hc      *http.Client
	rl      *rate.Limiter
	ua      string
}

func New(service string, rps int, hc *http.Client) *Client {
	if rps <= 0 {
		rps = 5
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		service: service,
		hc:      hc,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		ua:      "Mozilla/5.0 (compatible; review-radar/1.0)",
	}
}

// Get performs a GET and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, endpoint, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.do(ctx, endpoint, req)
}

// PostForm performs a form-encoded POST and returns the body of a 2xx response.
func (c *Client) PostForm(ctx context.Context, endpoint, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	return c.do(ctx, endpoint, req)
}

func (c *Client) do(ctx context.Context, endpoint string, req *http.Request) ([]byte, error) {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.ua)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(c.service, endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// network error or per-attempt timeout
		return nil, &domain.TransientError{Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(c.service, endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, &domain.TransientError{Status: resp.StatusCode, Err: err}
		}
		return b, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized

	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrForbidden

	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		return nil, &domain.TransientError{
			Status:     resp.StatusCode,
			RetryAfter: retryAfter(resp),
			Err:        fmt.Errorf("remote %d", resp.StatusCode),
		}

	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
