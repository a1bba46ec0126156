// Package httpclient provides a configurable HTTP client for making requests to REST APIs.
// It supports authentication via bearer tokens and API keys, applies a per-request
// timeout and optional client-side rate limiting, and converts non-2xx responses into
// HTTPError values. The package requires a Configurator implementation for server
// configuration and authentication details.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every request when ClientOptions.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Configurator defines the interface for providing server configuration and authentication details.
// GetToken is consulted on every request so implementations may rotate it at any time.
type Configurator interface {
	GetServerURL() string
	GetToken() string        // bearer token, sent as "Authorization: Bearer <token>"
	GetAPIKey() string       // fallback credential, used only when no token is held
	GetAPIKeyHeader() string // header that carries the API key value verbatim
}

// HTTPError represents an error response from the server with HTTP status code and message.
type HTTPError struct {
	StatusCode int    // HTTP status code of the error
	Message    string // Error message or response body
}

// Error implements the error interface for HTTPError.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// TransportError is returned when a request could not be completed, e.g. the
// connection failed or the timeout elapsed.
type TransportError struct {
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return "request timed out: " + e.Err.Error()
	}
	return "request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// HTTPClient represents a client for making HTTP requests to a REST API server.
// It handles authentication, request building, and response processing.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	Timeout               time.Duration // per-request timeout; DefaultTimeout when zero
	DisableCertValidation bool          // If true, skips SSL certificate validation
	RateLimiter           *rate.Limiter // optional client-side limiter, waited on before each request
	UserAgent             string
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	return NewClientWithOptions(config, clientOpts)
}

// NewClientWithOptions creates a new HTTP client using the provided configuration and options.
func NewClientWithOptions(config Configurator, opts ClientOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	if opts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
		limiter:    opts.RateLimiter,
		userAgent:  opts.UserAgent,
	}
}

// RequestOptions contains options for making HTTP requests.
// Method and Path are required.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST, PUT, PATCH, DELETE)
	Path        string            // API endpoint path
	QueryParams map[string]string // Optional query parameters
	Body        []byte            // Optional request body
}

// DoRequest makes an HTTP request with the given options and returns the response body.
// Authentication uses the bearer token when one is held, else the API key, else none.
// Non-2xx responses are returned as *HTTPError, failures to complete the exchange as
// *TransportError.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join("/", u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	var bodyReader io.Reader
	if opts.Body != nil {
		bodyReader = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if token := c.config.GetToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if key := c.config.GetAPIKey(); key != "" {
		header := c.config.GetAPIKeyHeader()
		if header == "" {
			header = "Authorization"
		}
		req.Header.Set(header, key)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Err: err, Timeout: errors.Is(err, context.DeadlineExceeded)}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err, Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response body: %w", err), Timeout: isTimeout(err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, body),
		}
	}

	return body, nil
}

// Get issues a GET request for the given path.
func (c *HTTPClient) Get(ctx context.Context, path string, queryParams map[string]string) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodGet,
		Path:        path,
		QueryParams: queryParams,
	})
}

// Post issues a POST request with the given JSON body, which may be nil.
func (c *HTTPClient) Post(ctx context.Context, path string, data []byte) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   path,
		Body:   data,
	})
}

// Put issues a PUT request with the given JSON body.
func (c *HTTPClient) Put(ctx context.Context, path string, data []byte) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPut,
		Path:   path,
		Body:   data,
	})
}

// Patch issues a PATCH request with the given JSON body.
func (c *HTTPClient) Patch(ctx context.Context, path string, data []byte) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPatch,
		Path:   path,
		Body:   data,
	})
}

// errorMessage extracts a description from an error response. No body schema is
// assumed: "error" and "message" fields are used when present, the raw body otherwise.
func errorMessage(statusCode int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"error", "message"} {
			if msg := gjson.GetBytes(body, field); msg.Type == gjson.String && msg.String() != "" {
				return msg.String()
			}
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return msg
	}
	return http.StatusText(statusCode)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
