// Package transport implements the typed REST client for the storefront
// backend. All success responses follow the {success: true, data,
// pagination?} envelope; errors follow {success: false, message, code} or a
// bare transport-level failure.
//
// Resilience policy:
//   - Exactly one retry on HTTP 429, delaying by the server-supplied
//     Retry-After header (floored at the configured minimum) or a fixed
//     default. No other status is ever retried.
//   - A circuit breaker counts 5xx and transport failures; 4xx responses
//     do not affect circuit state.
//   - 401/403 fire the unauthorized hook so the caller can redirect to
//     sign-in, except for the profile and sign-in/sign-up endpoints, which
//     must not redirect-loop.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cairocart/storefront-go/core"
)

// Pagination mirrors the backend's pagination envelope field
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// envelope is the standard success wrapper
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
}

// Client is the HTTP client shared by all storefront services
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	telemetry  core.Telemetry
	tokens     core.TokenProvider
	breaker    *CircuitBreaker
	locale     string

	retryAfterDefault time.Duration
	retryAfterMin     time.Duration

	// unauthorizedHook fires on 401/403 outside the exempt auth paths
	unauthorizedHook func(path string)
}

// ClientOption configures the transport client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTelemetry enables span creation and otelhttp instrumentation of the
// underlying round tripper
func WithTelemetry(t core.Telemetry) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.telemetry = t
			base := c.httpClient.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			c.httpClient.Transport = otelhttp.NewTransport(base)
		}
	}
}

// WithTokenProvider sets the bearer-token source for authenticated requests
func WithTokenProvider(tp core.TokenProvider) ClientOption {
	return func(c *Client) {
		c.tokens = tp
	}
}

// WithLocale sets the Accept-Language header value
func WithLocale(locale string) ClientOption {
	return func(c *Client) {
		c.locale = locale
	}
}

// WithRetryAfter overrides the 429 retry delays
func WithRetryAfter(def, min time.Duration) ClientOption {
	return func(c *Client) {
		if def > 0 {
			c.retryAfterDefault = def
		}
		if min > 0 {
			c.retryAfterMin = min
		}
	}
}

// WithUnauthorizedHook registers the 401/403 callback
func WithUnauthorizedHook(hook func(path string)) ClientOption {
	return func(c *Client) {
		c.unauthorizedHook = hook
	}
}

// WithCircuitBreaker replaces the default circuit breaker
func WithCircuitBreaker(cb *CircuitBreaker) ClientOption {
	return func(c *Client) {
		if cb != nil {
			c.breaker = cb
		}
	}
}

// NewClient creates a transport client for the given API base URL
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("api base URL is required: %w", core.ErrMissingConfiguration)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        &http.Client{Timeout: timeout},
		logger:            &core.NoOpLogger{},
		telemetry:         &core.NoOpTelemetry{},
		locale:            "en",
		retryAfterDefault: 2 * time.Second,
		retryAfterMin:     1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.breaker == nil {
		c.breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig(), c.logger)
	}

	return c, nil
}

// SetLocale updates the Accept-Language preference at runtime
func (c *Client) SetLocale(locale string) {
	if locale != "" {
		c.locale = locale
	}
}

// Get performs a GET request and decodes the envelope data into out.
// Returns the pagination block when the backend sends one.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) (*Pagination, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST request with a JSON body and decodes the envelope
// data into out (out may be nil when the response data is not needed).
func (c *Client) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	_, err := c.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

// do executes a single logical request, including the one-shot 429 retry
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*Pagination, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "storefront.api."+method+" "+path)
	defer span.End()
	span.SetAttribute("http.method", method)
	span.SetAttribute("api.path", path)

	if !c.breaker.CanExecute() {
		err := &APIError{
			Status:  http.StatusServiceUnavailable,
			Message: "Service temporarily unavailable. Please try again later.",
			Err:     core.ErrCircuitBreakerOpen,
		}
		span.RecordError(err)
		return nil, err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	env, pag, err := c.roundTrip(ctx, method, path, query, payload)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
			// One retry on 429, honoring Retry-After. This is the only
			// built-in retry in the SDK.
			delay := c.retryDelay(apiErr)
			c.logger.Warn("Rate limited, retrying once", map[string]interface{}{
				"operation": "api_retry",
				"path":      path,
				"delay":     delay.String(),
			})
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			env, pag, err = c.roundTrip(ctx, method, path, query, payload)
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode response data for %s: %w", path, err)
		}
	}
	return pag, nil
}

// retryDelay computes the 429 backoff from the captured Retry-After value
func (c *Client) retryDelay(apiErr *APIError) time.Duration {
	if apiErr.retryAfter > 0 {
		if apiErr.retryAfter < c.retryAfterMin {
			return c.retryAfterMin
		}
		return apiErr.retryAfter
	}
	return c.retryAfterDefault
}

// roundTrip performs one HTTP exchange and classifies the outcome
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte) (*envelope, *Pagination, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.locale)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Error("Request failed", map[string]interface{}{
			"operation": "api_request",
			"method":    method,
			"path":      path,
			"error":     err.Error(),
		})
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, core.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, nil, fmt.Errorf("read response %s %s: %w", method, path, core.ErrConnectionFailed)
	}

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}

	if resp.StatusCode >= 400 {
		apiErr := newAPIError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.fireUnauthorized(path)
		}
		c.logger.Warn("API error response", map[string]interface{}{
			"operation": "api_request",
			"method":    method,
			"path":      path,
			"status":    resp.StatusCode,
			"code":      apiErr.Code,
		})
		return nil, nil, apiErr
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("decode envelope for %s: %w", path, err)
	}
	if !env.Success {
		// 2xx with success:false still carries the error shape
		return nil, nil, newAPIError(resp.StatusCode, raw)
	}

	return &env, env.Pagination, nil
}

// exempt paths never trigger the unauthorized hook: the profile check runs
// on every page load, and failing sign-in/sign-up is a normal outcome
var unauthorizedExempt = []string{
	"auth/profile",
	"auth/sign-in",
	"auth/sign-up",
}

func (c *Client) fireUnauthorized(path string) {
	if c.unauthorizedHook == nil {
		return
	}
	trimmed := strings.TrimLeft(path, "/")
	for _, exempt := range unauthorizedExempt {
		if strings.HasPrefix(trimmed, exempt) {
			return
		}
	}
	c.unauthorizedHook(path)
}

// parseRetryAfter interprets the Retry-After header. Only the
// delta-seconds form is honored; anything else falls back to the default.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
