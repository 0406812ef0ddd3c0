package types

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// errorTransport is a mock transport that always returns an error.
type errorTransport struct{}

func (e *errorTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("mock transport error")
}

func TestNewRealHTTPClient_DefaultTimeout(t *testing.T) {
	client := NewRealHTTPClient()
	require.Equal(t, DefaultRequestTimeout, client.Client.Timeout)
	require.Equal(t, 10*time.Second, client.Client.Timeout)
}

func TestNewRealHTTPClientWithTimeout_Zero(t *testing.T) {
	client := NewRealHTTPClientWithTimeout(0)
	require.Zero(t, client.Client.Timeout, "a zero timeout leaves the call bounded only by its context")
}

func TestRealHTTPClient_Do(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Hello, client")) //nolint:errcheck
	}))
	defer ts.Close()

	client := NewRealHTTPClient()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL, nil)
	require.NoError(t, err, "failed to create request")

	resp, err := client.Do(req)
	require.NoError(t, err, "expected no error, but got one")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "expected status code to be OK")
}

func TestRealHTTPClient_Do_Error(t *testing.T) {
	client := &RealHTTPClient{
		Client: &http.Client{
			Transport: &errorTransport{},
		},
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com", nil)
	require.NoError(t, err, "failed to create request")

	resp, err := client.Do(req) //nolint:bodyclose
	require.Error(t, err, "expected error, but got none")
	require.ErrorContains(t, err, "failed to do request")
	require.Nil(t, resp, "expected no response, but got one")
}

func TestMockLogger_Messages(t *testing.T) {
	logger := &MockLogger{}
	logger.Info("first")
	logger.Error("broken")
	logger.Info("second")

	require.Equal(t, []string{"first", "second"}, logger.Messages("info"))
	require.Equal(t, []string{"broken"}, logger.Messages("error"))
	require.Empty(t, logger.Messages("warn"))
}
