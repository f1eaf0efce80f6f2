// Package client talks to the link API on behalf of the dashboard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnreachable wraps transport failures: the API could not be reached or
// did not answer.
var ErrUnreachable = errors.New("api unreachable")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Link struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	TargetURL     string     `json:"targetUrl"`
	Clicks        int64      `json:"clicks"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastClickedAt *time.Time `json:"lastClickedAt"`
}

type Health struct {
	OK      bool    `json:"ok"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	const op = "client.New"

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse base url: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url must be absolute: %q", op, baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return c.baseURL.String() + "/" + strings.Join(escaped, "/")
}

// RedirectURL is the API address that counts a click on code and redirects
// to its target.
func (c *Client) RedirectURL(code string) (string, error) {
	const op = "client.Client.RedirectURL"

	if code == "" {
		return "", fmt.Errorf("%s: empty code", op)
	}

	return c.endpoint(code), nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	const op = "client.Client.Health"

	var h Health
	if err := c.do(ctx, http.MethodGet, c.endpoint("healthz"), nil, &h); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &h, nil
}

func (c *Client) CreateLink(ctx context.Context, targetURL, customCode string) (*Link, error) {
	const op = "client.Client.CreateLink"

	payload := map[string]string{"targetUrl": targetURL}
	if customCode != "" {
		payload["customCode"] = customCode
	}

	var env envelope[Link]
	if err := c.do(ctx, http.MethodPost, c.endpoint("api", "links"), payload, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &env.Data, nil
}

func (c *Client) ListLinks(ctx context.Context, search string) ([]Link, error) {
	const op = "client.Client.ListLinks"

	endpoint := c.endpoint("api", "links")
	if search != "" {
		endpoint += "?" + url.Values{"search": {search}}.Encode()
	}

	var env envelope[[]Link]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return env.Data, nil
}

func (c *Client) GetLinkStats(ctx context.Context, code string) (*Link, error) {
	const op = "client.Client.GetLinkStats"

	var env envelope[Link]
	if err := c.do(ctx, http.MethodGet, c.endpoint("api", "links", code), nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &env.Data, nil
}

func (c *Client) DeleteLink(ctx context.Context, code string) error {
	const op = "client.Client.DeleteLink"

	var env envelope[struct{}]
	if err := c.do(ctx, http.MethodDelete, c.endpoint("api", "links", code), nil, &env); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil && eb.Error != "" {
			apiErr.Message = eb.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}

		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}
