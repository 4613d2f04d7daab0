package apiclient

import (
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

// ErrUnauthenticated is returned when the backend reports that the request
// carries no valid session credential.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrMalformedResponse is returned when a response body cannot be decoded
// into the expected envelope.
var ErrMalformedResponse = errors.New("malformed response")

// codeUnauthenticated is the envelope error code the backend uses for a
// missing or expired session.
const codeUnauthenticated = "UNAUTHENTICATED"

const maxBodyBytes = 1 << 20

// APIError is returned for non-2xx responses and non-success envelopes.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Envelope is the backend's generic response wrapper.
type Envelope[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// UnmarshalJSON accepts the {code, message} error object of the envelope.
func (e *APIError) UnmarshalJSON(b []byte) error {
	var raw struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Code = raw.Code
	e.Message = raw.Message
	return nil
}

// Client talks to the marketplace backend API on behalf of one viewer.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// WithToken sets the bearer credential sent with every request.
func WithToken(token string) ClientOption {
	return func(o *clientOptions) {
		o.token = token
	}
}

// WithTimeout bounds each request. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// NewClient creates a new backend API client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	o := &clientOptions{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", baseURL)
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: o.timeout}
	}

	return &Client{
		baseURL:    u,
		token:      o.token,
		httpClient: hc,
	}, nil
}

// do performs one request and decodes the envelope payload into out.
// It never retries.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}

	var env Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}

	if !env.Success {
		if env.Error != nil && env.Error.Code == codeUnauthenticated {
			return ErrUnauthenticated
		}
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}
