// Package heyreach is a thin client for the HeyReach public API. It is
// used to resolve campaign metadata for inbound leads. HeyReach enforces
// 300 requests per minute per API key, so every call goes through a
// client-side limiter, and 429 responses are retried once honoring the
// Retry-After header.
package heyreach

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.heyreach.io/api/public"

	httpTimeout = 30 * time.Second

	// requestsPerMinute mirrors the server-side limit.
	requestsPerMinute = 300

	maxRetryWait = 10 * time.Second
)

// Campaign is the subset of campaign fields the lead pipeline reads.
type Campaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// APIError is a non-2xx answer from HeyReach.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("heyreach: api error %d: %s", e.StatusCode, e.Message)
}

// Client calls the HeyReach public API.
type Client struct {
	baseURL string
	apiKey  string
	limiter *rate.Limiter
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
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute/10),
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// GetCampaign fetches a single campaign by id.
func (c *Client) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var out Campaign
	if err := c.get(ctx, "/campaigns/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCampaigns fetches all campaigns, optionally filtered by status.
func (c *Client) ListCampaigns(ctx context.Context, status string) ([]Campaign, error) {
	path := "/campaigns"
	if status != "" {
		path += "?status=" + status
	}
	var out struct {
		Items []Campaign `json:"items"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// get runs one GET with a single retry on 429.
func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, path)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp)
		resp.Body.Close()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		if resp, err = c.do(ctx, path); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("heyreach: decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("heyreach: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("heyreach: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("heyreach: send request: %w", err)
	}
	return resp, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			d := time.Duration(secs * float64(time.Second))
			if d > maxRetryWait {
				d = maxRetryWait
			}
			return d
		}
	}
	return time.Second
}

// errorMessage pulls a message out of an error body, falling back to the
// raw text.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 512))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return string(raw)
}
