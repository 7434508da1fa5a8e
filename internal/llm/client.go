package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for the completion service. All of them terminate the
// turn: transport and service failures are never converted into tool
// payloads.
var (
	ErrNoAPIKey      = errors.New("no API key configured")
	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrContextLength = errors.New("context length exceeded")
	ErrInvalidModel  = errors.New("invalid or unavailable model")
	ErrServiceDown   = errors.New("completion service unavailable")
	ErrBadEnvelope   = errors.New("malformed response envelope")
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1"
	defaultTimeout = 120 * time.Second
)

// Client talks to the Responses API over HTTP. It is stateless between
// calls; conversational state lives on the service side and is addressed
// via previous_response_id.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the service endpoint, e.g. for a proxy or mock.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithModel sets the default model for requests that don't name one.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client. The API key is required.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the client's default model.
func (c *Client) Model() string { return c.model }

// CreateResponse performs one round against the service. The request's
// Model defaults to the client's model when empty.
func (c *Client) CreateResponse(ctx context.Context, req *Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceDown, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, c.checkError(httpResp.StatusCode, raw)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: missing response id", ErrBadEnvelope)
	}
	return &resp, nil
}

// Ping verifies connectivity and credentials with a cheap models call.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceDown, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrNoAPIKey
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrServiceDown, resp.StatusCode)
	}
	return nil
}

// apiError is the service's error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// checkError maps a non-200 status to a sentinel error, keeping the
// service's message for context.
func (c *Client) checkError(status int, body []byte) error {
	var ae apiError
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &ae) == nil && ae.Error.Message != "" {
		msg = ae.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrNoAPIKey, msg)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case status == http.StatusNotFound || ae.Error.Code == "model_not_found":
		return fmt.Errorf("%w: %s", ErrInvalidModel, msg)
	case status == http.StatusBadRequest && strings.Contains(msg, "context length"):
		return fmt.Errorf("%w: %s", ErrContextLength, msg)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrServiceDown, status, msg)
	default:
		return fmt.Errorf("completion service error (status %d): %s", status, msg)
	}
}
