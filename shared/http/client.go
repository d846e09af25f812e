package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultClient is a shared HTTP client with sensible defaults
var DefaultClient = &http.Client{
	Timeout: 15 * time.Second,
}

// LongTimeoutClient is for operations that may take longer (forced searches)
var LongTimeoutClient = &http.Client{
	Timeout: 30 * time.Second,
}

// ProbeClient is for cheap reachability checks that should fail fast
var ProbeClient = &http.Client{
	Timeout: 5 * time.Second,
}

// Get performs a GET with context and optional headers. Unlike a plain
// helper that rejects non-200s, the response comes back whatever the status:
// the version-probing clients need to see 404s for themselves.
func Get(ctx context.Context, apiURL string, headers map[string]string, client *http.Client) (*http.Response, error) {
	if client == nil {
		client = DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// PostJSON performs a POST with a JSON body and optional headers. The
// response comes back whatever the status.
func PostJSON(ctx context.Context, apiURL string, headers map[string]string, body interface{}, client *http.Client) (*http.Response, error) {
	if client == nil {
		client = DefaultClient
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// BuildQueryURL builds a URL with query parameters
func BuildQueryURL(baseURL string, params map[string]string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL // Return original if parsing fails
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DecodeJSONResponse decodes a JSON response from an HTTP response body
func DecodeJSONResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Drain discards and closes a response body so the connection can be reused.
func Drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
