// Package plugin provides the HTTP client implementation of the webhook
// plugin runtime. Each webhook names a plugin id and version; the runtime
// service initializes that plugin for the domain and parses raw payloads.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jean1042/monitoring/internal/parser"
)

// Client calls a plugin runtime service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ parser.PluginRuntime = (*Client)(nil)

// NewClient creates a plugin runtime client for the given base URL,
// e.g. "http://plugin-runtime:8081".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type initRequest struct {
	DomainID string `json:"domain_id"`
}

type parseRequest struct {
	Options map[string]string `json:"options,omitempty"`
	Data    string            `json:"data"`
}

type parseResponse struct {
	Results []parser.RawResult `json:"results"`
}

// Initialize prepares the plugin for the domain.
func (c *Client) Initialize(ctx context.Context, pluginID, pluginVersion, domainID string) error {
	url := fmt.Sprintf("%s/v1/plugins/%s/versions/%s/init", c.baseURL, pluginID, pluginVersion)
	body, err := json.Marshal(initRequest{DomainID: domainID})
	if err != nil {
		return fmt.Errorf("failed to marshal init request: %w", err)
	}

	if _, err := c.post(ctx, url, body); err != nil {
		return fmt.Errorf("failed to initialize plugin %s@%s: %w", pluginID, pluginVersion, err)
	}
	return nil
}

// ParseEvent asks the initialized plugin to parse a raw webhook payload.
func (c *Client) ParseEvent(ctx context.Context, options map[string]string, rawData string) ([]parser.RawResult, error) {
	url := c.baseURL + "/v1/parse"
	body, err := json.Marshal(parseRequest{Options: options, Data: rawData})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse request: %w", err)
	}

	respBody, err := c.post(ctx, url, body)
	if err != nil {
		return nil, fmt.Errorf("plugin parse call failed: %w", err)
	}

	var resp parseResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode plugin response: %w", err)
	}
	return resp.Results, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plugin runtime returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
