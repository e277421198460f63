package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request without
// contacting the upstream API.
var ErrCircuitOpen = errors.New("circuit breaker open")

// StatusError reports a 429 or 5xx response that was not retried further.
type StatusError struct {
	Attempts   int
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("giving up after %d attempts, last status: %d", e.Attempts, e.StatusCode)
}

// callerGoneError marks a failure caused by the caller's own context ending.
// The breaker counts it as a success, so callers hanging up never open the circuit.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }

func (e *callerGoneError) Unwrap() error { return e.err }

// isBreakerSuccess reports whether err should not count against the upstream.
func isBreakerSuccess(err error) bool {
	var gone *callerGoneError
	return err == nil || errors.As(err, &gone)
}

// CircuitBreakerConfig configures the breaker wrapped around upstream requests.
type CircuitBreakerConfig struct {
	// Enabled turns the breaker on.
	Enabled bool

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period after which closed-state counts are cleared.
	// Zero never clears them.
	Interval time.Duration

	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
}

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Name identifies the upstream in breaker state callbacks.
	Name string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the number of extra attempts on network errors, 429 and 5xx.
	// Zero disables retries.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// CircuitBreaker configures the optional circuit breaker.
	CircuitBreaker CircuitBreakerConfig

	// OnStateChange, if set, is called whenever the circuit breaker changes state.
	OnStateChange func(name, from, to string)
}

// HTTPClient wraps http.Client with rate limiting, optional retries and an
// optional circuit breaker. It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	breaker     *gobreaker.CircuitBreaker
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-InspireRSS/1.0"
	}
	if cfg.Name == "" {
		cfg.Name = "upstream"
	}

	c := &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}

	if cfg.CircuitBreaker.Enabled {
		c.breaker = newCircuitBreaker(cfg)
	}

	return c
}

func newCircuitBreaker(cfg HTTPClientConfig) *gobreaker.CircuitBreaker {
	cb := cfg.CircuitBreaker
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}
	if cb.MaxRequests == 0 {
		cb.MaxRequests = 1
	}
	if cb.Timeout == 0 {
		cb.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cb.MaxRequests,
		Interval:    cb.Interval,
		Timeout:     cb.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cb.FailureThreshold
		},
		IsSuccessful: isBreakerSuccess,
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// Do executes an HTTP request through the circuit breaker (when enabled), waiting
// on the rate limiter before each attempt and setting the User-Agent header.
//
// A 5xx or 429 response that is not retried is returned as an error and counts as
// a breaker failure; any other response is returned to the caller as is. Errors
// that occur after the request's own context has ended do not count.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	if c.breaker == nil {
		return c.do(req)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.do(req)
		if err != nil && req.Context().Err() != nil {
			return nil, &callerGoneError{err: err}
		}
		return resp, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		var gone *callerGoneError
		if errors.As(err, &gone) {
			return nil, gone.err
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

// BreakerState returns the circuit breaker state name, or "disabled".
func (c *HTTPClient) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.config.MaxRetries {
				if err := c.waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if c.shouldRetry(resp.StatusCode) {
			retryDelay := c.getRetryDelay(resp)

			if resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}

			if attempt < c.config.MaxRetries {
				lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
				if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
					return nil, err
				}
				continue
			}

			return nil, &StatusError{Attempts: attempt + 1, StatusCode: resp.StatusCode}
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// shouldRetry returns true if the status code indicates a transient upstream failure.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay honours Retry-After (seconds or HTTP date) and otherwise falls back
// to the configured delay.
func (c *HTTPClient) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
