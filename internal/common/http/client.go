package http

import (
	"bytes"
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

	apperrors "hub-connectors/internal/common/errors"
	"hub-connectors/internal/common/metrics"

	"github.com/sony/gobreaker"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// BreakerSettings tunes the circuit breaker wrapped around every request.
type BreakerSettings struct {
	MaxFailures      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// Config describes one upstream API.
type Config struct {
	// Service names the upstream in errors and metrics.
	Service     string
	BaseURL     string
	Timeout     time.Duration
	Headers     map[string]string
	Username    string
	Password    string
	BearerToken string
	Breaker     BreakerSettings
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// Client is a JSON client for one upstream, guarded by a circuit breaker.
// Server errors and transport failures count against the breaker; client
// errors do not.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cfg        Config
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", cfg.BaseURL, err)
	}
	if cfg.Service == "" {
		cfg.Service = base.Host
	}
	if cfg.Breaker.MaxFailures == 0 {
		cfg.Breaker.MaxFailures = 5
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		cfg:        cfg,
	}

	maxFailures := cfg.Breaker.MaxFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Service,
		MaxRequests: cfg.Breaker.HalfOpenRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, _ gobreaker.State, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	metrics.BreakerState.WithLabelValues(cfg.Service).Set(float64(gobreaker.StateClosed))
	return c, nil
}

// BreakerState reports the breaker's current state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// GetJSON decodes the response of GET path?query into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON sends body as JSON and decodes the response into out. out may be
// nil for endpoints that answer 204.
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

type response struct {
	status int
	body   []byte
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.resolve(path, query)

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, target, err)
		}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, target, payload)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(c.cfg.Service, method).Observe(time.Since(start).Seconds())

	if err != nil {
		c.count(method, "error")
		return c.classify(err)
	}

	resp := result.(*response)
	if resp.status >= 400 {
		c.count(method, "rejected")
		return c.classifyStatus(&HTTPError{Method: method, URL: target, StatusCode: resp.status, Body: truncate(resp.body)})
	}

	c.count(method, "ok")
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return apperrors.NewUpstreamUnavailableError(c.cfg.Service, fmt.Errorf("decode %s %s: %w", method, target, err))
	}
	return nil
}

// roundTrip returns an error only for failures that should count against the
// breaker: transport errors and 5xx responses.
func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) (*response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	c.decorate(req, payload != nil)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 500 {
		return nil, &HTTPError{Method: method, URL: target, StatusCode: res.StatusCode, Body: truncate(data)}
	}
	return &response{status: res.StatusCode, body: data}, nil
}

func (c *Client) decorate(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	switch {
	case c.cfg.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	case c.cfg.Username != "" || c.cfg.Password != "":
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
}

func (c *Client) resolve(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) count(method, outcome string) {
	metrics.UpstreamRequests.WithLabelValues(c.cfg.Service, method, outcome).Inc()
}

func (c *Client) classify(err error) error {
	var httpErr *HTTPError
	var netErr net.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.NewUpstreamUnavailableError(c.cfg.Service, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewUpstreamTimeoutError(c.cfg.Service, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.NewUpstreamTimeoutError(c.cfg.Service, err)
	case errors.As(err, &httpErr):
		return apperrors.NewUpstreamUnavailableError(c.cfg.Service, err).WithMetadata("upstreamStatus", httpErr.StatusCode)
	default:
		return apperrors.NewUpstreamUnavailableError(c.cfg.Service, err)
	}
}

func (c *Client) classifyStatus(err *HTTPError) error {
	switch err.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewUpstreamAuthFailedError(c.cfg.Service, err.StatusCode)
	default:
		return apperrors.NewUpstreamRequestFailedError(c.cfg.Service, err.StatusCode, err.Body)
	}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
