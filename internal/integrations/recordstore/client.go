package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"tasting-log/internal/domain"
	"tasting-log/internal/logging"
)

const (
	DefaultTimeout = 10 * time.Second
	breakerName    = "recordstore"
)

// submitResponse is the body the record store answers with. Both fields are
// loosely typed because the store is a script whose output is not enforced.
type submitResponse struct {
	OK      any `json:"ok"`
	Message any `json:"message"`
}

// Client forwards enriched records to the external record store. Each call is
// a single attempt; there is no retry.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds the whole request, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreakerSettings replaces the default circuit breaker. Name is forced to
// "recordstore".
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) {
		st.Name = breakerName
		c.breaker = gobreaker.NewCircuitBreaker(st)
	}
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("recordstore: endpoint %q is not an absolute URL", endpoint)
	}
	c := &Client{
		endpoint:   endpoint,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		breaker:    gobreaker.NewCircuitBreaker(defaultBreakerSettings()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

func defaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Transitions are not tied to a request, so they go to the default logger.
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
}

// Forward submits rec and classifies the answer. Transport errors, timeouts,
// unreadable 200 bodies and an open breaker all map to ForwardTransportFailure.
func (c *Client) Forward(ctx context.Context, rec domain.EnrichedRecord) domain.ForwardResult {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.submit(ctx, rec)
	})
	if err != nil {
		logger := logging.FromContext(ctx)
		if IsBreakerOpen(err) {
			logger.WarnContext(ctx, "record store breaker open, request not sent", "err", err)
		} else {
			logger.ErrorContext(ctx, "record store request failed",
				"err", err,
				"breaker_state", c.breaker.State().String(),
			)
		}
		return domain.ForwardResult{Status: domain.ForwardTransportFailure}
	}
	return out.(domain.ForwardResult)
}

func (c *Client) submit(ctx context.Context, rec domain.EnrichedRecord) (domain.ForwardResult, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return domain.ForwardResult{}, fmt.Errorf("recordstore: marshal record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ForwardResult{}, fmt.Errorf("recordstore: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ForwardResult{}, fmt.Errorf("recordstore: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return domain.ForwardResult{}, fmt.Errorf("recordstore: read response body: %w", err)
	}

	var payload submitResponse
	decErr := json.Unmarshal(raw, &payload)

	if res.StatusCode != http.StatusOK {
		result := domain.ForwardResult{Status: domain.ForwardRejected}
		if decErr == nil {
			result.Message = messageOf(payload.Message)
		}
		return result, nil
	}
	if decErr != nil {
		return domain.ForwardResult{}, &MalformedResponseError{StatusCode: res.StatusCode, Err: decErr}
	}

	status := domain.ForwardRejected
	if truthy(payload.OK) {
		status = domain.ForwardAccepted
	}
	return domain.ForwardResult{Status: status, Message: messageOf(payload.Message)}, nil
}

// MalformedResponseError is returned when a successful status carries a body
// that is not a JSON object.
type MalformedResponseError struct {
	StatusCode int
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("recordstore: malformed response (status %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsBreakerOpen reports whether err came from the breaker refusing a call.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// truthy follows JavaScript truthiness for decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

// messageOf renders the store's message as text. Falsy values and JSON
// objects or arrays yield "".
func messageOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if !truthy(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if !t {
			return ""
		}
		return "true"
	default:
		return ""
	}
}
