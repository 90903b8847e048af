// Package wire defines the JSON request/response shapes that cross a
// process boundary: every client-facing HTTP route, plus the bodies
// Distributor exchanges with peers when proxying, gossiping, and
// running a view change. Kept separate from internal/api so that
// internal/distributor can also depend on it without importing the
// HTTP layer.
package wire

import "distributed-kvstore/internal/store"

type GetRequest struct {
	CausalContext store.Context `json:"causal-context"`
}

type GetResponse struct {
	Message       string        `json:"message"`
	Value         *string       `json:"value,omitempty"`
	DoesExist     *bool         `json:"doesExist,omitempty"`
	Error         string        `json:"error,omitempty"`
	CausalContext store.Context `json:"causal-context"`
	Address       string        `json:"address,omitempty"`
}

type PutRequest struct {
	Value         string        `json:"value"`
	CausalContext store.Context `json:"causal-context"`
}

type PutResponse struct {
	Message       string        `json:"message"`
	Replaced      *bool         `json:"replaced,omitempty"`
	Error         string        `json:"error,omitempty"`
	CausalContext store.Context `json:"causal-context"`
	Address       string        `json:"address,omitempty"`
}

type DeleteRequest struct {
	CausalContext store.Context `json:"causal-context"`
}

type DeleteResponse struct {
	Message       string        `json:"message"`
	Error         string        `json:"error,omitempty"`
	CausalContext store.Context `json:"causal-context"`
	Address       string        `json:"address,omitempty"`
}

// ShardTemplate describes one bucket in a view-change or shard-listing
// reply: its id, how many keys it holds, and its replica set.
type ShardTemplate struct {
	ShardID  int      `json:"shard-id"`
	KeyCount int      `json:"key-count"`
	Replicas []string `json:"replicas"`
}

type ViewChangeRequest struct {
	View       string `json:"view"`
	ReplFactor int    `json:"repl-factor"`
}

type ViewChangeResponse struct {
	Message string          `json:"message"`
	Shards  []ShardTemplate `json:"shards"`
}

type ViewChangePropagateRequest struct {
	View       []string `json:"view"`
	ReplFactor int      `json:"repl-factor"`
}

type ViewChangePropagateResponse struct {
	KVS map[string]store.Entry `json:"kvs"`
}

type ShardPushRequest struct {
	KVS map[string]store.Entry `json:"kvs"`
}

type GossipRequest struct {
	KVS map[string]store.Entry `json:"kvs"`
}

type SimpleResponse struct {
	Message string `json:"message"`
}

type KeyCountResponse struct {
	Message  string `json:"message"`
	KeyCount int    `json:"key-count"`
	ShardID  int    `json:"shard-id"`
}

type ShardsResponse struct {
	Message string          `json:"message"`
	Shards  []ShardTemplate `json:"shards"`
}

type ShardInfoResponse struct {
	Message  string   `json:"message"`
	ShardID  int      `json:"shard-id"`
	KeyCount int      `json:"key-count"`
	Replicas []string `json:"replicas"`
}
