// API service for making HTTP requests to the text-transformation backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/desertthunder/scribe/internal/shared"
)

const (
	LoginPath  = "/api/auth/login"
	HealthPath = "/health"
)

// APIService provides methods for making HTTP requests to the backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = shared.FallbackAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the backend root without a trailing slash.
func (a *APIService) BaseURL() string { return a.baseURL }

// WithClient returns a copy of the service that sends requests through client.
func (a *APIService) WithClient(client *http.Client) *APIService {
	return NewAPIService(a.baseURL, client)
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Login exchanges credentials for a token.
//
// Non-2xx responses return an [*APIError] carrying the server's message.
func (a *APIService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	payload, err := json.Marshal(LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := a.Post(ctx, LoginPath, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, NewAPIError(resp.StatusCode, resp.Body)
	}

	var login LoginResponse
	if err := json.Unmarshal(resp.Body, &login); err != nil {
		return nil, fmt.Errorf("%w: failed to decode login response: %v", shared.ErrAPIRequest, err)
	}
	if login.Token == "" {
		return nil, fmt.Errorf("%w: login response has no token", shared.ErrAPIRequest)
	}
	return &login, nil
}

// Health checks that the backend is reachable.
func (a *APIService) Health(ctx context.Context) error {
	resp, err := a.Get(ctx, HealthPath)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: health check returned %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// NewAuthorizedClient wraps base so every request carries the Bearer token from src.
func NewAuthorizedClient(src oauth2.TokenSource, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &http.Client{
		Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, src), Base: transport},
		Jar:       base.Jar,
		Timeout:   base.Timeout,
	}
}
