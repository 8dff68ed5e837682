// Package grocy implements a client for the Grocy REST API.
//
// Grocy deployments drift across versions: list endpoints move, response
// envelopes differ, and object field names change. The client therefore
// normalizes envelopes and retries each read across a small ordered list of
// candidate paths instead of assuming a single endpoint shape.
package grocy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is applied when no explicit request timeout is configured.
const DefaultTimeout = 15 * time.Second

// Client is a minimal client for the Grocy REST API.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New creates a Grocy client. baseURL points at the API root
// (e.g. http://host/api); apiKey is required.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("grocy: api key is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("grocy: base url is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: timeout},
	}, nil
}

// HTTPError is returned for non-2xx responses. The body is retained so
// Grocy validation errors surface to the caller.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("grocy: http %d: %s", e.Status, body)
}

// isMissingEndpoint reports whether err indicates the endpoint does not
// exist in this Grocy version (candidate-path probing should continue).
func isMissingEndpoint(err error) bool {
	he, ok := err.(*HTTPError)
	return ok && (he.Status == http.StatusNotFound || he.Status == http.StatusMethodNotAllowed)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("grocy: marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("grocy: build request: %w", err)
	}
	req.Header.Set("GROCY-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grocy: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("grocy: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(data)}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("grocy: decode response: %w", err)
		}
		return out, nil
	}
	return string(data), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (any, error) {
	if body == nil {
		body = map[string]any{}
	}
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (any, error) {
	if body == nil {
		body = map[string]any{}
	}
	return c.do(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) delete(ctx context.Context, path string) (any, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// getList fetches the first candidate path that yields a structurally valid
// list response. Missing-endpoint errors (404/405) advance to the next
// candidate; any other error aborts.
func (c *Client) getList(ctx context.Context, candidates []string) ([]Object, error) {
	var lastErr error
	for _, path := range candidates {
		data, err := c.get(ctx, path, nil)
		if err != nil {
			if isMissingEndpoint(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if items, ok := normalizeList(data); ok {
			return items, nil
		}
		// Unexpected shape: try next candidate.
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("grocy: no suitable endpoint among %v", candidates)
}

// objectExists reports whether /objects/{name}/{id} resolves.
func (c *Client) objectExists(ctx context.Context, objectName string, id int) (bool, error) {
	_, err := c.get(ctx, fmt.Sprintf("/objects/%s/%d", objectName, id), nil)
	if err != nil {
		if he, ok := err.(*HTTPError); ok && he.Status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
