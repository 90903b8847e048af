// Package peer is the node-to-node RPC client: Distributor uses it to
// proxy requests into other buckets, push shards at view-change, and
// fire gossip. It is deliberately untyped at the transport layer — one
// Call method that any of those use cases drives with its own request
// and response shapes — unlike internal/client, which is the
// client-facing SDK with one method per operation.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnreachable is the single sentinel every connection-level failure
// normalizes to: DNS failure, connection refused, TLS error, or
// context deadline exceeded while dialing. Callers that fan out to a
// whole bucket treat ErrUnreachable from one replica as "try the
// next", not as a fatal error.
var ErrUnreachable = errors.New("peer_unreachable")

// DefaultTimeout bounds every Call; a node that takes too long to
// answer is indistinguishable from one that's down.
const DefaultTimeout = 3 * time.Second

type Client struct {
	httpClient *http.Client
}

func New() *Client {
	return &Client{httpClient: &http.Client{Timeout: DefaultTimeout}}
}

// NewWithTimeout overrides DefaultTimeout, for tests and for operators
// tuning PEER_TIMEOUT_SECONDS.
func NewWithTimeout(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Call performs method path against addr (a bare "host:port", no
// scheme) with body JSON-encoded if non-nil, and decodes the response
// body into out if out is non-nil. It returns the HTTP status code on
// any response actually received, or ErrUnreachable if the connection
// itself failed.
func (c *Client) Call(ctx context.Context, addr, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := fmt.Sprintf("http://%s%s", addr, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, ErrUnreachable
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode response body: %w", err)
		}
	}
	return resp.StatusCode, nil
}
