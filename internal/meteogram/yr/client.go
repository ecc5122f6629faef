package yr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

const (
	DefaultBaseURL   = "https://www.yr.no"
	DefaultUserAgent = "yr-meteogram/1.0 github.com/i474232898/yr-meteogram"

	// maxBodyBytes bounds a single meteogram download.
	maxBodyBytes = 4 << 20
)

var (
	errNotSVG       = errors.New("response is not an SVG document")
	errBodyTooLarge = fmt.Errorf("response exceeds %d bytes", maxBodyBytes)
)

// Client fetches meteograms from Yr and applies the requested rendering
// settings. It implements meteogram.Fetcher.
type Client struct {
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	log       *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another Yr host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the User-Agent Yr asks clients to identify with.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBackoff enables retries.
func WithBackoff(b BackoffConfig) Option {
	return func(c *Client) {
		c.httpCfg.Backoff = b
	}
}

// WithLogger sets the client's logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new Client on top of a shared http.Client.
func NewClient(client *http.Client, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "yr",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// An unknown location means the service answered.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// FetchSVG downloads the meteogram of locationID and applies s.
func (c *Client) FetchSVG(ctx context.Context, locationID string, s meteogram.Settings) (string, error) {
	if locationID == "" {
		return "", fmt.Errorf("location id is required")
	}

	u := fmt.Sprintf("%s/en/content/%s/meteogram.svg", c.baseURL, url.PathEscape(locationID))
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "image/svg+xml")
		return req, nil
	}

	start := time.Now()
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return "", fmt.Errorf("fetch meteogram %s: %w", locationID, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !isSVGContentType(ct) {
		return "", fmt.Errorf("fetch meteogram %s: %w (content type %q)", locationID, errNotSVG, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read meteogram %s: %w", locationID, err)
	}
	if len(body) > maxBodyBytes {
		return "", fmt.Errorf("fetch meteogram %s: %w", locationID, errBodyTooLarge)
	}
	svg := string(body)
	if !strings.Contains(svg, "<svg") {
		return "", fmt.Errorf("fetch meteogram %s: %w", locationID, errNotSVG)
	}

	c.log.Debug("meteogram fetched",
		zap.String("location_id", locationID),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)),
	)
	return Transform(svg, s), nil
}

func isSVGContentType(ct string) bool {
	ct = strings.ToLower(ct)
	for _, sub := range []string{"svg", "xml"} {
		if strings.Contains(ct, sub) {
			return true
		}
	}
	return false
}
