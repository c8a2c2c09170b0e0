// Package tmdb is the rate-limited client for the TMDB metadata API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"movie-catalog/pkg/apperr"
	"movie-catalog/pkg/ratelimit"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL        = "https://api.themoviedb.org/3"
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 10 * time.Second

	maxBodyBytes = 4 << 20
)

type Config struct {
	BaseURL     string
	APIKey      string
	AccessToken string // preferred over APIKey when set

	RequestsPerSecond float64
	Retry             RetryPolicy
	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	GenreTTL          time.Duration
}

type Client struct {
	baseURL     string
	apiKey      string
	accessToken string

	http    *http.Client
	limiter *ratelimit.Limiter
	retry   RetryPolicy
	breaker *gobreaker.CircuitBreaker
	genres  *GenreCache
	store   GenreStore
	ttl     time.Duration
	log     *zap.Logger
}

type Option func(*Client)

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithGenreCache injects a cache owned by the caller instead of one backed
// by this client's genre endpoint.
func WithGenreCache(g *GenreCache) Option {
	return func(c *Client) { c.genres = g }
}

// WithSharedGenres backs the client's own genre cache with a shared store.
func WithSharedGenres(s GenreStore) Option {
	return func(c *Client) { c.store = s }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		http:        newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout),
		limiter:     ratelimit.New(cfg.RequestsPerSecond),
		retry:       cfg.Retry.withDefaults(),
		ttl:         cfg.GenreTTL,
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With(zap.String("client", "tmdb"))

	if c.genres == nil {
		gopts := []GenreCacheOption{WithGenreTTL(c.ttl), WithGenreLogger(c.log)}
		if c.store != nil {
			gopts = append(gopts, WithGenreStore(c.store))
		}
		c.genres = NewGenreCache(c.Genres, gopts...)
	}
	return c
}

// GenreCache exposes the cache so owners can invalidate it.
func (c *Client) GenreCache() *GenreCache {
	return c.genres
}

// NewBreaker builds a breaker that trips after failures consecutive
// transient or 5xx outcomes and probes again after timeout.
func NewBreaker(name string, failures uint32, timeout time.Duration, log *zap.Logger) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// breakerSuccess counts only upstream instability against the breaker.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var e *apperr.Error
	if !errors.As(err, &e) {
		return true
	}
	switch e.Kind {
	case apperr.KindTransient:
		return false
	case apperr.KindUpstream:
		return e.Status < http.StatusInternalServerError
	}
	return true
}

func newHTTPClient(connect, read time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = connect
	tr.ResponseHeaderTimeout = read
	return &http.Client{Transport: tr}
}

// get performs one logical GET through the breaker and retry policy and
// decodes a 2xx body into dst.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, dst any) error {
	if c.breaker == nil {
		return c.getWithRetry(ctx, endpoint, query, dst)
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.getWithRetry(ctx, endpoint, query, dst)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperr.Transient(err, "tmdb unavailable for %s", endpoint)
	}
	return err
}

func (c *Client) getWithRetry(ctx context.Context, endpoint string, query url.Values, dst any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		hint, err := c.do(ctx, endpoint, query, dst)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay, ok := c.retry.Delay(attempt, err, hint)
		if !ok {
			if attempt > 0 {
				return exhausted(err, attempt)
			}
			return err
		}

		c.log.Warn("Retrying tmdb request",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.String("kind", string(apperr.KindOf(err))),
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func exhausted(err error, retries int) error {
	switch apperr.KindOf(err) {
	case apperr.KindRateLimited:
		return apperr.RateLimited("Rate limit exceeded after %d retries", retries)
	case apperr.KindTransient:
		return apperr.Transient(err, "Request failed after %d retries", retries)
	}
	return err
}

// do issues a single request. For 429 answers it also returns the
// Retry-After hint, or noHint.
func (c *Client) do(ctx context.Context, endpoint string, query url.Values, dst any) (time.Duration, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.accessToken == "" && c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	u := c.baseURL + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return noHint, fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return noHint, apperr.Transient(err, "Request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return noHint, apperr.Transient(err, "Reading %s failed", endpoint)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, dst); err != nil {
			return noHint, fmt.Errorf("tmdb: decode %s: %w body=%q", endpoint, err, body[:min(len(body), 200)])
		}
		return noHint, nil
	}

	msg := statusMessage(body, resp.StatusCode)
	switch resp.StatusCode {
	case http.StatusNotFound:
		c.log.Debug("tmdb resource not found", zap.String("endpoint", endpoint))
		return noHint, apperr.NotFound("%s", msg)
	case http.StatusUnauthorized:
		c.log.Error("tmdb rejected credentials", zap.String("endpoint", endpoint))
		return noHint, apperr.Unauthorized("%s", msg)
	case http.StatusTooManyRequests:
		return parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()), apperr.RateLimited("%s", msg)
	default:
		return noHint, apperr.Upstream(resp.StatusCode, msg)
	}
}

func statusMessage(body []byte, status int) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.StatusMessage != "" {
		return eb.StatusMessage
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Unknown error"
}
