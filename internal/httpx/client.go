package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"jigpipe/internal/faults"
	"jigpipe/internal/logging"
)

const (
	defaultTimeout   = 45 * time.Second
	defaultAttempts  = 5
	defaultBaseDelay = 500 * time.Millisecond
	maxBackoffDelay  = 30 * time.Second
)

// Config describes client construction parameters.
type Config struct {
	Token      string
	Timeout    time.Duration
	Attempts   int
	BaseDelay  time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is the authenticated request primitive shared by every component
// that talks HTTP. One connection pool, one TLS context.
type Client struct {
	token     string
	attempts  int
	baseDelay time.Duration
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*Response]
	logger    *slog.Logger
}

// Response carries the status and body of a completed request.
type Response struct {
	Status int
	Body   []byte
}

// RequestOptions tune a single request.
type RequestOptions struct {
	Body        []byte
	ContentType string
	IfMatch     string
	IfNoneMatch string
	// NoAuth suppresses the bearer header for third-party origins.
	NoAuth bool
}

// New constructs a Client from the supplied configuration.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = defaultAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "platform",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 8
		},
	})

	return &Client{
		token:     strings.TrimSpace(cfg.Token),
		attempts:  attempts,
		baseDelay: baseDelay,
		http:      httpClient,
		breaker:   breaker,
		logger:    logger.With(logging.String(logging.FieldComponent, "httpx")),
	}
}

// Do issues the request with retry and backoff. Transport failures and 5xx
// responses are retried up to the attempt budget; every other status is
// returned to the caller for classification.
func (c *Client) Do(ctx context.Context, method, url string, opts RequestOptions) (*Response, error) {
	if c == nil {
		return nil, faults.Fatalf("httpx client is nil")
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.backoffDelay(attempt)); err != nil {
				return nil, faults.TransportErr(err)
			}
		}

		resp, err := c.breaker.Execute(func() (*Response, error) {
			return c.attempt(ctx, method, url, opts)
		})
		if err == nil {
			if resp.Status >= 500 {
				lastErr = faults.TransportErr(fmt.Errorf("%s %s: server error %d", method, url, resp.Status))
				c.logger.Warn("server error, will retry",
					logging.String("url", url),
					logging.Int("status", resp.Status),
					logging.Int("attempt", attempt+1))
				continue
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			lastErr = faults.TransportErr(err)
			continue
		}
		if ctx.Err() != nil {
			return nil, faults.TransportErr(ctx.Err())
		}
		lastErr = faults.TransportErr(err)
		c.logger.Warn("request failed, will retry",
			logging.String("url", url),
			logging.Error(err),
			logging.Int("attempt", attempt+1))
	}
	if lastErr == nil {
		lastErr = faults.TransportErr(fmt.Errorf("%s %s: retry budget exhausted", method, url))
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, url string, opts RequestOptions) (*Response, error) {
	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" && !opts.NoAuth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	if opts.IfMatch != "" {
		req.Header.Set("If-Match", opts.IfMatch)
	}
	if opts.IfNoneMatch != "" {
		req.Header.Set("If-None-Match", opts.IfNoneMatch)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		// A truncated body is a transport failure, never a success.
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: payload}, nil
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay <<= 1
		// The doubling overflows int64 for large configured attempt
		// counts; a non-positive delay means we shot past the cap.
		if delay >= maxBackoffDelay || delay <= 0 {
			delay = maxBackoffDelay
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
