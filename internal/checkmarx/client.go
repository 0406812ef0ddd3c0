// Package checkmarx calls the Checkmarx One REST API on behalf of an authenticated user.
package checkmarx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/defenseunicorns/uds-cxone-report/pkg/types"
)

// DefaultProjectLimit is how many projects ListRecentProjects asks for.
const DefaultProjectLimit = 10

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code: %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Project is a single entry of /projects/last-scan. Fields vary by tenant, so it is kept as raw JSON.
type Project map[string]interface{}

// projectsResponse is the body of GET /projects/last-scan.
type projectsResponse struct {
	Projects []Project `json:"projects"`
}

// Client talks to a Checkmarx One API base URL such as https://eu.ast.checkmarx.net/api.
type Client struct {
	httpClient types.HTTPClientInterface
	logger     types.Logger
	baseURL    string
}

// NewClient returns a Client that sends requests through httpClient.
// httpClient is expected to add the Authorization header; see NewAuthenticatedHTTPClient.
func NewClient(baseURL string, httpClient types.HTTPClientInterface, logger types.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewAuthenticatedHTTPClient returns an http.Client that sets "Authorization: Bearer <token>" on every request.
// The token is never refreshed. base supplies the transport and timeout; nil means types.NewRealHTTPClient.
func NewAuthenticatedHTTPClient(ctx context.Context, token *oauth2.Token, base *http.Client) *http.Client {
	if base == nil {
		base = types.NewRealHTTPClient().Client
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
}

// ListRecentProjects returns up to limit projects ordered by their last scan.
// On failure the error is logged and an empty, non-nil slice is returned with it.
func (c *Client) ListRecentProjects(ctx context.Context, limit int) ([]Project, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	var body projectsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/projects/last-scan?"+query.Encode(), nil, &body); err != nil {
		c.logger.Error("Project request failed", zap.Error(err))
		return []Project{}, err
	}
	if body.Projects == nil {
		return []Project{}, nil
	}
	return body.Projects, nil
}

// CreateCustomizedReport submits report to POST /reports/v2 and returns the parsed response.
// On failure the error is logged and an empty, non-nil map is returned with it.
func (c *Client) CreateCustomizedReport(ctx context.Context, report *ReportRequest) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := c.doJSON(ctx, http.MethodPost, "/reports/v2", report, &body); err != nil {
		c.logger.Error("Customized scan report creation failed", zap.Error(err))
		return map[string]interface{}{}, err
	}
	if body == nil {
		// a literal null body
		body = map[string]interface{}{}
	}
	c.logger.Info("Customized scan report requested", zap.Any("response", body))
	return body, nil
}

// doJSON sends payload (if any) as JSON and decodes a 2xx response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("error encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, types.DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(data)}
	}

	// an empty body is a decode failure too
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error parsing JSON response: %w", err)
	}
	return nil
}
