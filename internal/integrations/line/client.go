package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"tasting-log/internal/integrations/paramstore"
)

const (
	DefaultBaseURL = "https://api.line.me"
	// maxTextLength is LINE's limit for a text message, in characters.
	maxTextLength = 5000
)

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

// tokenPayload is the JSON shape stored in SSM for channel credentials.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx responses from the LINE API.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("line: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends replies through the LINE Messaging API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	accessToken cachedParam
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose channel access token is read from the
// parameter store on the first Reply and reused for the process lifetime.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("line: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("line: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAccessToken(ctx context.Context) (string, error) {
	return c.accessToken.get(ctx, c.getter, c.paramPrefix+"/line-channel-token")
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func replyURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/v2/bot/message/reply"
}

// Reply sends a single text message for replyToken. Text longer than LINE's
// limit is truncated.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	replyToken = strings.TrimSpace(replyToken)
	if replyToken == "" {
		return errors.New("line: reply token must not be empty")
	}

	accessToken, err := c.resolveAccessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: truncate(text, maxTextLength)}},
	})
	if err != nil {
		return fmt.Errorf("line: marshal reply: %w", err)
	}

	url := replyURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("line: reply request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
	return nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// cachedParam holds a parameter store value once it has been fetched
// successfully. Failed fetches are retried on the next call.
type cachedParam struct {
	mu    sync.Mutex
	value string
}

func (p *cachedParam) get(ctx context.Context, getter Getter, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value != "" {
		return p.value, nil
	}
	v, err := fetchToken(ctx, getter, name)
	if err != nil {
		return "", err
	}
	p.value = v
	return v, nil
}

func fetchToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("line: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("line: parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if errors.Is(err, paramstore.ErrNotFound) {
		return "", fmt.Errorf("line: channel credential %s is not provisioned: %w", name, err)
	}
	if err != nil {
		return "", fmt.Errorf("line: fetch %s from paramstore: %w", name, err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("line: unmarshal paramstore value %s as JSON: %w", name, err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("line: %s token is empty", name)
	}
	return tp.Token, nil
}
