// Package botapi is a thin HTTP client for the OPTEEE bot API. The server
// owns conversation storage, retrieval, and provider selection; this client
// only speaks its three endpoints.
package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultProvider   = "claude"
	defaultNumResults = 5
)

// Client calls one OPTEEE bot-API deployment.
type Client struct {
	baseURL    string
	provider   string
	numResults int
	httpClient *http.Client
}

// Options tune a Client beyond its base URL.
type Options struct {
	Provider   string
	NumResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("bot api base url is required")
	}

	provider := opts.Provider
	if provider == "" {
		provider = defaultProvider
	}
	numResults := opts.NumResults
	if numResults <= 0 {
		numResults = defaultNumResults
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    baseURL,
		provider:   provider,
		numResults: numResults,
		httpClient: httpClient,
	}, nil
}

// HealthStatus is the decoded /api/health payload.
type HealthStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Healthy reports whether the status value marks the API as up.
func (h HealthStatus) Healthy() bool {
	switch strings.ToLower(h.Status) {
	case "ok", "healthy", "up":
		return true
	}
	return false
}

// Source is one retrieval hit returned alongside an answer.
type Source struct {
	Title                 string  `json:"title"`
	VideoID               string  `json:"video_id"`
	URL                   string  `json:"url"`
	VideoURLWithTimestamp string  `json:"video_url_with_timestamp"`
	StartTimestampSeconds float64 `json:"start_timestamp_seconds"`
}

// ChatResponse is the decoded /api/chat payload.
type ChatResponse struct {
	Answer         string   `json:"answer"`
	ConversationID string   `json:"conversation_id"`
	Sources        []Source `json:"sources"`
}

type chatRequest struct {
	Query          string `json:"query"`
	Provider       string `json:"provider"`
	NumResults     int    `json:"num_results"`
	Format         string `json:"format"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Health checks the API health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CreateConversation starts a server-side conversation and returns its id.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/conversations", map[string]any{}, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("bot api returned an empty conversation id")
	}
	return created.ID, nil
}

// Chat sends a query, optionally continuing a server-side conversation.
func (c *Client) Chat(ctx context.Context, query, conversationID string) (*ChatResponse, error) {
	payload := chatRequest{
		Query:          query,
		Provider:       c.provider,
		NumResults:     c.numResults,
		Format:         "json",
		ConversationID: conversationID,
	}

	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", payload, &resp); err != nil {
		return nil, err
	}
	if resp.ConversationID == "" {
		resp.ConversationID = conversationID
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal bot api request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build bot api request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bot api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read bot api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bot api returned %s for %s: %s", resp.Status, path, snippet(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode bot api response: %w", err)
	}
	return nil
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
