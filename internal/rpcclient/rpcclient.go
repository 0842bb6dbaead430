// Package rpcclient is the thin HTTP JSON client shared by a node's
// tracker-registration and peer-gossip paths. Every outbound call carries a
// bounded timeout (spec.md §5: "every outbound HTTP call has a bounded
// timeout"); the caller never holds the chain/mempool lock while a call is
// in flight.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the per-call timeout used when none is supplied,
// matching spec.md §4.3's "bounded timeout (default 5 s)".
const DefaultTimeout = 5 * time.Second

// Client is a small wrapper around *http.Client that always applies a
// per-call timeout via context, and marshals/unmarshals JSON bodies.
type Client struct {
	http    *http.Client
	Timeout time.Duration
}

// New returns a Client with the given default per-call timeout. A zero
// timeout selects DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{}, Timeout: timeout}
}

// PostJSON POSTs body (marshaled as JSON) to url and decodes the response
// body into out (if out is non-nil). A non-2xx status is returned as an
// error carrying the status code and response body.
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	var payload []byte
	var err error
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rpcclient: marshal request: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("rpcclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("rpcclient: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpcclient: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpcclient: read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rpcclient: %s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, string(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("rpcclient: decode response: %w", err)
	}
	return nil
}
