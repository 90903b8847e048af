// Package client provides a Go SDK for talking to the distributed KV
// store over its HTTP routes.
//
// Big idea:
//
// Instead of writing raw HTTP requests everywhere, we wrap them inside
// a clean Go API. So instead of:
//
//	http.NewRequest(...)
//	json.Marshal(...)
//
// Users can simply call:
//
//	client.Put(ctx, "key", "value", causalCtx)
//	client.Get(ctx, "key", causalCtx)
//
// Every call threads a store.Context through: the caller receives one
// back from each response and is expected to pass it into the next
// call on any key that causally depends on this one. The client does
// not interpret it — it is opaque baggage the server uses to decide
// whether a read's dependencies have been satisfied.
//
// This client talks to ONE node. That node is responsible for
// proxying to whichever replica actually owns a key — the SDK does
// not implement routing, hashing, or replication itself.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"distributed-kvstore/internal/apierr"
	"distributed-kvstore/internal/store"
	"distributed-kvstore/internal/wire"
)

// Client represents a connection to one KV node.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Client. timeout protects every call from hanging
// forever — in a distributed system, never call the network without one.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get retrieves key, given the causal context the caller has
// accumulated so far. A missing key surfaces as ErrNotFound; an
// unsatisfied causal dependency surfaces as ErrUnableToSatisfy.
func (c *Client) Get(ctx context.Context, key string, causalCtx store.Context) (wire.GetResponse, error) {
	var result wire.GetResponse
	err := c.do(ctx, http.MethodGet, "/kvs/keys/"+key, wire.GetRequest{CausalContext: causalCtx}, &result)
	return result, classify(result.Error, err)
}

// Put stores key=value, extending causalCtx with this write. The
// returned context should replace the caller's for any key that
// causally depends on this write.
func (c *Client) Put(ctx context.Context, key, value string, causalCtx store.Context) (wire.PutResponse, error) {
	var result wire.PutResponse
	err := c.do(ctx, http.MethodPut, "/kvs/keys/"+key, wire.PutRequest{Value: value, CausalContext: causalCtx}, &result)
	return result, classify(result.Error, err)
}

// Delete tombstones key. Internally the server may replicate the
// deletion and merge it with concurrent writes during gossip — the
// client doesn't care, it just sends the request and reports the
// resulting context.
func (c *Client) Delete(ctx context.Context, key string, causalCtx store.Context) (wire.DeleteResponse, error) {
	var result wire.DeleteResponse
	err := c.do(ctx, http.MethodDelete, "/kvs/keys/"+key, wire.DeleteRequest{CausalContext: causalCtx}, &result)
	return result, classify(result.Error, err)
}

// ChangeView installs a brand-new membership on the node this Client
// points at, which then drives the full view-change protocol across
// the union of the old and new IP lists.
func (c *Client) ChangeView(ctx context.Context, ips []string, replFactor int) (wire.ViewChangeResponse, error) {
	view := ""
	for i, ip := range ips {
		if i > 0 {
			view += ","
		}
		view += ip
	}
	var result wire.ViewChangeResponse
	err := c.do(ctx, http.MethodPut, "/kvs/view-change", wire.ViewChangeRequest{View: view, ReplFactor: replFactor}, &result)
	return result, err
}

// Shards lists every bucket in the node's current view along with its
// live key count.
func (c *Client) Shards(ctx context.Context) (wire.ShardsResponse, error) {
	var result wire.ShardsResponse
	err := c.do(ctx, http.MethodGet, "/kvs/shards", nil, &result)
	return result, err
}

// ShardInfo resolves a single bucket's membership and key count.
func (c *Client) ShardInfo(ctx context.Context, shardID int) (wire.ShardInfoResponse, error) {
	var result wire.ShardInfoResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/kvs/shards/%d", shardID), nil, &result)
	return result, err
}

// KeyCount reports the live key count of a single bucket. A nil
// shardID asks for the node's own bucket.
func (c *Client) KeyCount(ctx context.Context, shardID *int) (wire.KeyCountResponse, error) {
	path := "/kvs/key-count"
	if shardID != nil {
		path = fmt.Sprintf("%s?shard-id=%d", path, *shardID)
	}
	var result wire.KeyCountResponse
	err := c.do(ctx, http.MethodGet, path, nil, &result)
	return result, err
}

// do is the one place every typed call funnels through: encode body
// if present, send, check the HTTP status, decode the response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 && out != nil {
		body, _ := io.ReadAll(resp.Body)
		var kind struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &kind) == nil && kind.Error != "" {
			return json.Unmarshal(body, out)
		}
		return &APIError{Status: resp.StatusCode, Message: string(body)}
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = fmt.Errorf("key not found")

// ErrUnableToSatisfy is returned when the server could not confirm the
// causal context the caller supplied.
var ErrUnableToSatisfy = fmt.Errorf("unable to satisfy causal context")

// APIError carries the HTTP status and the error message from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// classify turns a wire-level error kind (from a successfully decoded
// response body) into one of the package's sentinel errors, falling
// back to whatever transport-level err was already produced.
func classify(errKind string, err error) error {
	if err != nil {
		return err
	}
	switch errKind {
	case "":
		return nil
	case apierr.KeyNotExist:
		return ErrNotFound
	case apierr.UnableToSatisfy:
		return ErrUnableToSatisfy
	default:
		return &APIError{Message: errKind}
	}
}

// checkStatus converts HTTP error responses into Go errors.
//
// If status is 2xx or 4xx, decoding proceeds normally — this
// protocol's error payloads (unable_to_satisfy, key_not_exist, ...)
// travel inside an otherwise well-formed JSON body, not just the
// status line. Any 5xx becomes a bare APIError here; do decodes a 5xx
// whose JSON body carries an error kind before it gets this far.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 500 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return &APIError{Status: resp.StatusCode, Message: string(body)}
}
