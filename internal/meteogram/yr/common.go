package yr

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

// BackoffConfig controls retries of a failed fetch. MaxRetries of zero means
// a single attempt per fetch.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles the shared HTTP client with its retry policy.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errNotFound      = errors.New("location not found")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// statusError carries the server's Retry-After hint along with the
// classified status.
type statusError struct {
	err        error
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v (HTTP %d)", e.err, e.code)
}

func (e *statusError) Unwrap() error {
	return e.err
}

// classifyStatus maps a non-2xx response to one of the sentinel errors.
func classifyStatus(resp *http.Response) error {
	se := &statusError{code: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		se.err = errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		se.err = errRateLimited
		se.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 500:
		se.err = errServerError
		se.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	default:
		se.err = errUnexpected
	}
	return se
}

// parseRetryAfter accepts both the delay-seconds and the HTTP-date form.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func (b BackoffConfig) validate() error {
	if b.MaxRetries < 0 || (b.MaxRetries > 0 && b.InitialInterval <= 0) {
		return errInvalidConfig
	}
	return nil
}

// delay is the wait before retry number attempt (0-based): the server's hint
// when it sent one, else InitialInterval doubled per attempt. Both are capped
// by MaxInterval when set.
func (b BackoffConfig) delay(attempt int, err error) time.Duration {
	d := b.InitialInterval << attempt
	var se *statusError
	if errors.As(err, &se) && se.retryAfter > 0 {
		d = se.retryAfter
	}
	if b.MaxInterval > 0 && (d > b.MaxInterval || d <= 0) {
		d = b.MaxInterval
	}
	return d
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return !errors.Is(err, errNotFound) && !errors.Is(err, errUnexpected)
}

// doRequestWithResilience runs the request through the circuit breaker and
// retries transient failures per cfg.Backoff. The caller closes the body of
// the returned response; every other response body is drained and closed.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if err := cfg.Backoff.validate(); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := execute(cfg.Client, cb, req)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !retryable(err) || attempt >= cfg.Backoff.MaxRetries {
			return nil, err
		}

		timer := time.NewTimer(cfg.Backoff.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func execute(client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) (*http.Response, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drainAndClose(resp.Body)
			return nil, classifyStatus(resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
