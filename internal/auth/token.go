// Package auth exchanges a Checkmarx One API key for a short lived access token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/defenseunicorns/uds-cxone-report/internal/config"
	"github.com/defenseunicorns/uds-cxone-report/pkg/types"
)

const (
	// ClientID is the public OAuth client Checkmarx One issues API key tokens to.
	ClientID = "ast-app"
	// tokenPath is appended to {iam_url}{tenant_name}.
	tokenPath = "/protocol/openid-connect/token"
)

// ErrTokenNotFound is returned when the identity service answers 200 without an access_token.
var ErrTokenNotFound = errors.New("access token not found in response")

// ErrMissingCredentials is returned when iam_url, tenant_name or api_key is empty.
var ErrMissingCredentials = errors.New("iam_url, tenant_name and api_key are required")

// RequestError is returned when the identity service answers anything but 200.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("failed to generate token. status: %d, response: %s", e.StatusCode, e.Body)
}

// tokenResponse is the subset of the OpenID Connect token response we read.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Issuer performs the refresh-token grant against the tenant's identity endpoint.
type Issuer struct {
	client types.HTTPClientInterface
}

// NewIssuer returns an Issuer that sends requests through client.
// A nil client gets one without a timeout, so the call is bounded only by ctx.
func NewIssuer(client types.HTTPClientInterface) *Issuer {
	if client == nil {
		client = types.NewRealHTTPClientWithTimeout(0)
	}
	return &Issuer{client: client}
}

// TokenURL builds the OpenID Connect token endpoint. iamURL is expected to end with a slash.
func TokenURL(iamURL, tenant string) string {
	return iamURL + tenant + tokenPath
}

// Issue exchanges cfg.APIKey for an access token.
// Failures come back as *RequestError, ErrTokenNotFound or ErrMissingCredentials; the token is nil whenever err is not.
func (i *Issuer) Issue(ctx context.Context, cfg *config.Config) (*oauth2.Token, error) {
	if cfg == nil || cfg.IAMURL == "" || cfg.TenantName == "" || cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ClientID},
		"refresh_token": {cfg.APIKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, TokenURL(cfg.IAMURL, cfg.TenantName),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading token response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("error parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, ErrTokenNotFound
	}

	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}
	return token, nil
}

// Redact hides all but the last 8 characters of a token.
func Redact(token string) string {
	if len(token) <= 8 {
		return "***" + token
	}
	return "***" + token[len(token)-8:]
}
