package httpclient

import "context"

// HTTPClientInterface defines the interface for HTTP client implementations.
// It provides a common set of methods for making authenticated requests to a REST API.
type HTTPClientInterface interface {
	// DoRequest makes an HTTP request with the given options and returns the response body.
	DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error)

	// Get issues a GET request for the given path with optional query parameters.
	Get(ctx context.Context, path string, queryParams map[string]string) ([]byte, error)

	// Post issues a POST request with an optional JSON body.
	Post(ctx context.Context, path string, data []byte) ([]byte, error)

	// Put issues a PUT request with a JSON body.
	Put(ctx context.Context, path string, data []byte) ([]byte, error)

	// Patch issues a PATCH request with a JSON body.
	Patch(ctx context.Context, path string, data []byte) ([]byte, error)
}

var _ HTTPClientInterface = &HTTPClient{}
