// Package api wires the distributor up to an HTTP surface with gin.
// Every handler translates a gin request into a Distributor call and a
// wire.* response back — it holds no KV or view state of its own.
package api

import (
	"net/http"
	"strconv"
	"strings"

	"distributed-kvstore/internal/apierr"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/distributor"
	"distributed-kvstore/internal/wire"

	"github.com/gin-gonic/gin"
)

// Handler holds the single dependency every route needs.
type Handler struct {
	dist     *distributor.Distributor
	selfAddr string
}

// NewHandler creates a Handler for a node whose own address is
// selfAddr — reported back to clients in responses so they can tell
// which replica actually served a request.
func NewHandler(dist *distributor.Distributor, selfAddr string) *Handler {
	return &Handler{dist: dist, selfAddr: selfAddr}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	kvs := r.Group("/kvs")
	kvs.GET("/keys/:key", h.GetKey)
	kvs.PUT("/keys/:key", h.PutKey)
	kvs.DELETE("/keys/:key", h.DeleteKey)
	kvs.PUT("/view-change", h.ViewChange)
	kvs.PUT("/view-change-propagate", h.ViewChangePropagate)
	kvs.PUT("/shard", h.ShardPush)
	kvs.PUT("/gossip", h.Gossip)
	kvs.GET("/key-count", h.KeyCount)
	kvs.GET("/shards", h.Shards)
	kvs.GET("/shards/:id", h.ShardInfo)
}

// bindOptionalJSON decodes body into out, tolerating a request with no
// body at all — GET and some internal PUTs may carry an empty one.
func bindOptionalJSON(c *gin.Context, out any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(out)
}

// Health reports this node's own address and bucket membership.
func (h *Handler) Health(c *gin.Context) {
	v := h.dist.View()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"address": h.selfAddr,
		"bucket":  v.BucketIndex(),
	})
}

// GetKey handles GET /kvs/keys/:key.
func (h *Handler) GetKey(c *gin.Context) {
	key := c.Param("key")
	var req wire.GetRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, wire.GetResponse{Message: "malformed request body", Error: apierr.UnableToSatisfy})
		return
	}

	status, value, ctx, errKind := h.dist.Get(c.Request.Context(), key, req.CausalContext)
	resp := wire.GetResponse{CausalContext: ctx, Address: h.selfAddr}
	if errKind != "" {
		resp.Message = "Error in GET"
		resp.Error = errKind
	} else {
		resp.Message = "Retrieved successfully"
		v := value
		exists := true
		resp.Value = &v
		resp.DoesExist = &exists
	}
	c.JSON(status, resp)
}

// PutKey handles PUT /kvs/keys/:key.
func (h *Handler) PutKey(c *gin.Context) {
	key := c.Param("key")
	var req wire.PutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, wire.PutResponse{Message: "malformed request body", Error: apierr.ValueMissing})
		return
	}

	status, ctx, errKind := h.dist.Put(c.Request.Context(), key, req.Value, req.CausalContext)
	resp := wire.PutResponse{CausalContext: ctx, Address: h.selfAddr}
	switch {
	case errKind != "":
		resp.Message = "Error in PUT"
		resp.Error = errKind
	case status == http.StatusCreated:
		resp.Message = "Added successfully"
		replaced := false
		resp.Replaced = &replaced
	default:
		resp.Message = "Updated successfully"
		replaced := true
		resp.Replaced = &replaced
	}
	c.JSON(status, resp)
}

// DeleteKey handles DELETE /kvs/keys/:key.
func (h *Handler) DeleteKey(c *gin.Context) {
	key := c.Param("key")
	var req wire.DeleteRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, wire.DeleteResponse{Message: "malformed request body", Error: apierr.UnableToSatisfy})
		return
	}

	status, ctx, errKind := h.dist.Delete(c.Request.Context(), key, req.CausalContext)
	resp := wire.DeleteResponse{CausalContext: ctx, Address: h.selfAddr}
	if errKind != "" {
		resp.Message = "Error in DELETE"
		resp.Error = errKind
	} else {
		resp.Message = "Deleted successfully"
	}
	c.JSON(status, resp)
}

// ViewChange handles PUT /kvs/view-change — the entry point a cluster
// operator calls on one node to install a brand-new membership.
func (h *Handler) ViewChange(c *gin.Context) {
	var req wire.ViewChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: err.Error()})
		return
	}

	ips := splitCommaList(req.View)
	resp, err := h.dist.ChangeView(c.Request.Context(), ips, req.ReplFactor)
	if err != nil {
		c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: apierr.InvalidView})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ViewChangePropagate handles PUT /kvs/view-change-propagate — the
// follower side of a view change, called by the node running
// ChangeView on every member of the old-or-new union.
func (h *Handler) ViewChangePropagate(c *gin.Context) {
	var req wire.ViewChangePropagateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: err.Error()})
		return
	}

	shard, err := h.dist.PropagateView(req.View, req.ReplFactor)
	if err != nil {
		c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: apierr.InvalidView})
		return
	}
	c.JSON(http.StatusOK, wire.ViewChangePropagateResponse{KVS: shard})
}

// ShardPush handles PUT /kvs/shard — a node being handed its new
// partition wholesale at the end of a view change.
func (h *Handler) ShardPush(c *gin.Context) {
	var req wire.ShardPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: err.Error()})
		return
	}

	h.dist.MergeShard(req.KVS)
	c.JSON(http.StatusOK, wire.SimpleResponse{Message: "Shard installed"})
}

// Gossip handles PUT /kvs/gossip — a replica peer's periodic push of
// its own shard, merged in via last-write-wins.
func (h *Handler) Gossip(c *gin.Context) {
	var req wire.GossipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: err.Error()})
		return
	}

	h.dist.MergeGossip(req.KVS)
	c.JSON(http.StatusOK, wire.SimpleResponse{Message: "Gossip merged"})
}

// KeyCount handles GET /kvs/key-count?shard-id=N. Omitting shard-id
// reports this node's own bucket.
func (h *Handler) KeyCount(c *gin.Context) {
	var bucketID *int
	if raw := c.Query("shard-id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: apierr.InvalidView})
			return
		}
		bucketID = &id
	}

	count, shardID, err := h.dist.KeyCount(c.Request.Context(), bucketID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, wire.SimpleResponse{Message: apierr.UnableToSatisfy})
		return
	}
	c.JSON(http.StatusOK, wire.KeyCountResponse{Message: "Key count retrieved successfully", KeyCount: count, ShardID: shardID})
}

// Shards handles GET /kvs/shards — the full bucket membership table.
func (h *Handler) Shards(c *gin.Context) {
	shards := h.dist.Shards(c.Request.Context())
	c.JSON(http.StatusOK, wire.ShardsResponse{Message: "Shard membership retrieved successfully", Shards: shards})
}

// ShardInfo handles GET /kvs/shards/:id.
func (h *Handler) ShardInfo(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, wire.SimpleResponse{Message: apierr.InvalidView})
		return
	}

	info, err := h.dist.ShardInfo(c.Request.Context(), id)
	if err != nil {
		status := http.StatusServiceUnavailable
		if err == cluster.ErrInvalidView {
			status = http.StatusBadRequest
		}
		c.JSON(status, wire.SimpleResponse{Message: apierr.InvalidView})
		return
	}
	info.Message = "Shard information retrieved successfully"
	c.JSON(http.StatusOK, info)
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
