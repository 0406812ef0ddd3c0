package types

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds every call made against the Checkmarx One API.
const DefaultRequestTimeout = 10 * time.Second

// HTTPClientInterface is an abstraction that allows for easier testing by mocking HTTP responses.
// It defines a single method, Do, which takes an http.Request and returns an http.Response and an error.
type HTTPClientInterface interface {
	Do(req *http.Request) (*http.Response, error)
}

// RealHTTPClient is a concrete implementation of HTTPClientInterface that uses a real http.Client to make requests.
type RealHTTPClient struct {
	Client *http.Client
}

// NewRealHTTPClient creates a new instance of RealHTTPClient bounded by DefaultRequestTimeout.
func NewRealHTTPClient() *RealHTTPClient {
	return NewRealHTTPClientWithTimeout(DefaultRequestTimeout)
}

// NewRealHTTPClientWithTimeout creates a RealHTTPClient with the given timeout.
// A zero timeout means the client never gives up on its own; only the request context can end the call.
func NewRealHTTPClientWithTimeout(timeout time.Duration) *RealHTTPClient {
	return &RealHTTPClient{
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do sends an HTTP request using the underlying http.Client and returns the response.
// It satisfies the HTTPClientInterface by implementing the Do method.
func (c *RealHTTPClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to do request: %w", err)
	}
	return resp, nil
}
