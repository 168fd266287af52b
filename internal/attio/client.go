// Package attio writes classification results back to the Attio CRM.
// Company records are asserted by domain so repeated webhooks for the
// same company update one record instead of creating duplicates.
package attio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the Attio API root.
const DefaultBaseURL = "https://api.attio.com/v2"

const httpTimeout = 30 * time.Second

// APIError is a non-2xx answer from Attio.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("attio: api error %d: %s", e.StatusCode, e.Message)
}

// Client calls the Attio CRM API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a Client. baseURL falls back to DefaultBaseURL when empty.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// AssertCompanyVertical upserts a company record matched by domain and
// sets its vertical attribute.
func (c *Client) AssertCompanyVertical(ctx context.Context, domain, verticalSlug string) error {
	if domain == "" {
		return fmt.Errorf("attio: domain is required")
	}

	payload := map[string]any{
		"data": map[string]any{
			"values": map[string]any{
				"domains":  []map[string]any{{"domain": domain}},
				"vertical": []map[string]any{{"value": verticalSlug}},
			},
		},
	}
	return c.put(ctx, "/objects/companies/records?matching_attribute=domains", payload)
}

func (c *Client) put(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("attio: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("attio: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("attio: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	return nil
}

func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 512))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(raw)
}
