package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// Client talks to the storefront REST backend. It is safe for concurrent use and
// shared by every session; the caller's credential is passed per call.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.OrNop(l) }
}

// WithBreakerSettings replaces the circuit breaker configuration. IsSuccessful is
// always overridden so that client errors never open the circuit.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = newBreaker(st, c.logger) }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = newBreaker(gobreaker.Settings{
			Name:        "backend",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}, c.logger)
	}
	return c
}

func newBreaker(st gobreaker.Settings, l *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	st.IsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		var se *StatusError
		if errors.As(err, &se) {
			return !se.ServerSide()
		}
		return errors.Is(err, context.Canceled)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.OrNop(l).Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	token       string
}

// do runs one request through the breaker and returns the raw response body.
// Non-2xx answers come back as *StatusError.
func (c *Client) do(ctx context.Context, in call) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, in)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", in.op, err)
		}
		logger.WithTrace(ctx, c.logger).Debug("backend call failed",
			zap.String("op", in.op),
			zap.String("method", in.method),
			zap.String("path", in.path),
			zap.Error(err))
		return nil, err
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, in call) ([]byte, error) {
	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	var reader io.Reader
	if in.body != nil {
		reader = bytes.NewReader(in.body)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", in.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in.contentType != "" {
		req.Header.Set("Content-Type", in.contentType)
	}
	if in.token != "" {
		req.Header.Set("Authorization", "Bearer "+in.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", in.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Op:         in.op,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBody),
		}
	}
	return data, nil
}

// authed fails fast when no token is available, mirroring a 401 from the backend.
func authed(op string, cred credentials.Credential) (string, error) {
	if cred.Empty() {
		return "", fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}
	return cred.Token, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func segment(s string) string {
	return url.PathEscape(s)
}
