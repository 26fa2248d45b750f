package busclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client provides HTTP client access to the canlink gateway API
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a new canlink HTTP client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	// Validate required config
	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("ClientID is required")
	}

	// Parse base URL
	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	// Create HTTP client with timeout
	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	client := &Client{
		config:     config,
		httpClient: httpClient,
		baseURL:    baseURL,
	}

	return client, nil
}

// Authenticate authenticates with the gateway and stores the token
func (c *Client) Authenticate(ctx context.Context) error {
	authReq := map[string]string{
		"clientId": c.config.ClientID,
	}

	var authResp AuthResponse
	err := c.doRequest(ctx, "POST", "/api/v1/auth/login", authReq, &authResp, false)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	c.token = authResp.Token
	return nil
}

// SendFrame transmits a frame on the gateway's bus
func (c *Client) SendFrame(ctx context.Context, id uint32, data []byte) (*SendFrameResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	req := SendFrameRequest{
		ID:   id,
		Data: data,
	}

	var resp SendFrameResponse
	err := c.doRequest(ctx, "POST", "/api/v1/frames", req, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to send frame: %w", err)
	}

	return &resp, nil
}

// Watch installs a route for a message identifier. Matching frames are
// captured by the gateway and retrievable with ReadFrames.
func (c *Client) Watch(ctx context.Context, id uint32) (*RouteResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	req := RouteRequest{
		ID: id,
	}

	var resp RouteResponse
	err := c.doRequest(ctx, "POST", "/api/v1/routes", req, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create route: %w", err)
	}

	return &resp, nil
}

// ListRoutes returns the gateway's installed routes in insertion order
func (c *Client) ListRoutes(ctx context.Context) (*RoutesResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	var resp RoutesResponse
	err := c.doRequest(ctx, "GET", "/api/v1/routes", nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	return &resp, nil
}

// ReadFrames reads captured frames for an identifier starting at offset
func (c *Client) ReadFrames(ctx context.Context, id uint32, offset int64, limit int) (*FramesResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	path := fmt.Sprintf("/api/v1/frames/%d", id)
	queryParams := url.Values{}
	if offset > 0 {
		queryParams.Set("offset", fmt.Sprintf("%d", offset))
	}
	if limit > 0 {
		queryParams.Set("limit", fmt.Sprintf("%d", limit))
	}

	var resp FramesResponse
	err := c.doRequestWithQuery(ctx, "GET", path, queryParams, nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames: %w", err)
	}

	return &resp, nil
}

// GetHealth returns the health status of the gateway
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, "GET", "/api/v1/health", nil, &resp, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}

	return &resp, nil
}

// AdminGetStats returns gateway statistics (admin only)
func (c *Client) AdminGetStats(ctx context.Context) (*StatsResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	var resp StatsResponse
	err := c.doRequest(ctx, "GET", "/api/v1/admin/stats", nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &resp, nil
}

// doRequestWithQuery performs an HTTP request with query parameters and optional authentication
func (c *Client) doRequestWithQuery(ctx context.Context, method, path string, queryParams url.Values, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	// Build full URL with query parameters
	u := &url.URL{Path: path}
	if len(queryParams) > 0 {
		u.RawQuery = queryParams.Encode()
	}
	fullURL := c.baseURL.ResolveReference(u)

	// Prepare request body
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Check status code
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(bodyBytes))
		}
		return fmt.Errorf("API error (%d): %s - %s", resp.StatusCode, errResp.Error, errResp.Message)
	}

	// Parse successful response
	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// doRequest performs an HTTP request with optional authentication
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	return c.doRequestWithQuery(ctx, method, path, nil, reqBody, respBody, requireAuth)
}

// IsAuthenticated returns whether the client has a valid token
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// GetToken returns the current authentication token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken sets the authentication token (useful for testing or token reuse)
func (c *Client) SetToken(token string) {
	c.token = token
}
