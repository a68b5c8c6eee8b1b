// Package client talks to the Virtus REST API: session verification, plan
// status, archive upload and entrypoint discovery.
package client

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

	"github.com/virtuscloud/virtus/pkg/virtus/logging"
)

var logger = logging.Get("client")

// DefaultTimeout bounds each request, including the upload.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrMissingToken is returned by New when no API token is configured.
var ErrMissingToken = errors.New("api token is required")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	// Message comes from the body's "error" or "message" field, falling
	// back to the status text.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// RetryMax is the retry budget for GET requests. Negative disables retries.
	RetryMax int
	// Backoff is the delay before the first retry.
	Backoff time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// Base overrides the underlying transport, mainly for tests.
	Base http.RoundTripper
}

// Client is a Virtus API client. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New returns a client for the API at baseURL authenticated with token.
func New(baseURL, token string, opts Options) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retryMax := opts.RetryMax
	if retryMax == 0 {
		retryMax = defaultRetryMax
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			Transport: &Transport{
				Base:      opts.Base,
				Token:     token,
				UserAgent: opts.UserAgent,
				RetryMax:  retryMax,
				Backoff:   backoff,
			},
		},
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends req and decodes a 2xx JSON body into out, which may be nil.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	logger.Debug("api response",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
