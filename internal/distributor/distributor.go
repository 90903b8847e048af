// Package distributor is the central orchestrator: it dispatches
// GET/PUT/DELETE locally or by proxy, merges shards from peers, drives
// view-change, and runs gossip. It is the only component that holds a
// mutable View and KVStore — every other package is handed exactly
// the state it needs through a narrow interface.
package distributor

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"distributed-kvstore/internal/apierr"
	"distributed-kvstore/internal/causal"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/peer"
	"distributed-kvstore/internal/scheduler"
	"distributed-kvstore/internal/store"
	"distributed-kvstore/internal/wire"

	"github.com/rs/zerolog"
)

type Distributor struct {
	view           atomic.Pointer[cluster.View]
	store          *store.Store
	peer           *peer.Client
	scheduler      *scheduler.Scheduler
	engine         *causal.Engine
	log            zerolog.Logger
	gossipInterval time.Duration
}

const gossipJobID = "gossip"

func New(v *cluster.View, s *store.Store, peerClient *peer.Client, sched *scheduler.Scheduler, log zerolog.Logger, gossipInterval time.Duration) *Distributor {
	d := &Distributor{
		store:          s,
		peer:           peerClient,
		scheduler:      sched,
		log:            log,
		gossipInterval: gossipInterval,
	}
	d.view.Store(v)
	d.engine = causal.New(&localAdapter{d: d}, &proberAdapter{d: d})
	d.rearmGossip(v)
	return d
}

// View returns the currently installed view.
func (d *Distributor) View() *cluster.View {
	return d.view.Load()
}

// Close stops the background gossip job, for graceful shutdown.
func (d *Distributor) Close() {
	d.scheduler.ClearJobs()
}

// localAdapter and proberAdapter exist only so Distributor can satisfy
// causal.Local and causal.Prober under method names (Owns, Get,
// ProbeLastWrite) that don't collide with Distributor's own Get/Put/
// Delete operations, which have a different, richer signature.
type localAdapter struct{ d *Distributor }

func (l *localAdapter) Owns(key string) bool {
	v := l.d.view.Load()
	return v.HasSelf() && cluster.Assign(key, v.NumBuckets()) == v.BucketIndex()
}

func (l *localAdapter) Get(key string) (store.Entry, bool) {
	return l.d.store.Get(key)
}

type proberAdapter struct{ d *Distributor }

// ProbeLastWrite issues a remote GET for key with an empty causal
// context (so the Satisfied check on the remote side is trivially
// true) and reads the entry's last_write off the last tuple of the
// returned context — reusing the standard GET route rather than
// inventing a dedicated probe RPC, since GET already returns exactly
// this information.
func (p *proberAdapter) ProbeLastWrite(ctx context.Context, key string) (int64, bool, error) {
	v := p.d.view.Load()
	bucketIdx := cluster.Assign(key, v.NumBuckets())
	if v.IsOwnBucket(bucketIdx) {
		e, ok := p.d.store.Get(key)
		if !ok {
			return 0, false, nil
		}
		return e.LastWrite, true, nil
	}

	for _, addr := range v.Bucket(bucketIdx) {
		var resp wire.GetResponse
		status, err := p.d.peer.Call(ctx, addr, http.MethodGet, "/kvs/keys/"+key, wire.GetRequest{}, &resp)
		if err != nil {
			continue
		}
		switch status {
		case http.StatusOK:
			return lastWriteOf(resp.CausalContext), true, nil
		case http.StatusNotFound:
			return 0, false, nil
		}
	}
	return 0, false, peer.ErrUnreachable
}

func lastWriteOf(ctx store.Context) int64 {
	if len(ctx) == 0 {
		return -1
	}
	return ctx[len(ctx)-1].Meta.LastWrite
}

// Get resolves key locally if this node owns its bucket, confirming
// the caller's causal context first; otherwise it fans out to whichever
// bucket does own it.
func (d *Distributor) Get(ctx context.Context, key string, clientCtx store.Context) (status int, value string, newCtx store.Context, errKind string) {
	v := d.view.Load()
	bucketIdx := cluster.Assign(key, v.NumBuckets())

	if v.IsOwnBucket(bucketIdx) {
		if !d.engine.Satisfied(ctx, clientCtx) {
			return http.StatusBadRequest, "", clientCtx, apierr.UnableToSatisfy
		}
		e, ok := d.store.Get(key)
		if !ok || e.Deleted {
			return http.StatusNotFound, "", clientCtx, apierr.KeyNotExist
		}
		return http.StatusOK, e.Value, causal.Extend(clientCtx, key, e), ""
	}

	return d.proxyGet(ctx, v.Bucket(bucketIdx), key, clientCtx)
}

type getResult struct {
	status int
	resp   wire.GetResponse
	err    error
}

func (d *Distributor) proxyGet(ctx context.Context, bucket []string, key string, clientCtx store.Context) (int, string, store.Context, string) {
	results := make(chan getResult, len(bucket))
	var wg sync.WaitGroup
	for _, addr := range bucket {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			var resp wire.GetResponse
			status, err := d.peer.Call(ctx, addr, http.MethodGet, "/kvs/keys/"+key, wire.GetRequest{CausalContext: clientCtx}, &resp)
			results <- getResult{status: status, resp: resp, err: err}
		}(addr)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var successes, others []getResult
	for r := range results {
		if r.err != nil {
			continue
		}
		if r.status == http.StatusOK {
			successes = append(successes, r)
		} else {
			others = append(others, r)
		}
	}

	if len(successes) > 0 {
		best := successes[0]
		for _, r := range successes[1:] {
			if lastWriteOf(r.resp.CausalContext) > lastWriteOf(best.resp.CausalContext) {
				best = r
			}
		}
		value := ""
		if best.resp.Value != nil {
			value = *best.resp.Value
		}
		return best.status, value, best.resp.CausalContext, best.resp.Error
	}

	if len(others) > 0 {
		best := others[0]
		for _, r := range others[1:] {
			if r.status < best.status {
				best = r
			}
		}
		return best.status, "", best.resp.CausalContext, best.resp.Error
	}

	return http.StatusServiceUnavailable, "", clientCtx, apierr.UnableToSatisfy
}

// Put validates key/value constraints, then stores locally if this
// node owns the key's bucket or proxies to whichever bucket does.
func (d *Distributor) Put(ctx context.Context, key, value string, clientCtx store.Context) (status int, newCtx store.Context, errKind string) {
	if key == "" || len(key) > 50 {
		return http.StatusBadRequest, clientCtx, apierr.KeyTooLong
	}
	if value == "" {
		return http.StatusBadRequest, clientCtx, apierr.ValueMissing
	}

	v := d.view.Load()
	bucketIdx := cluster.Assign(key, v.NumBuckets())

	if v.IsOwnBucket(bucketIdx) {
		cause := causal.BuildCause(clientCtx)
		e, outcome := d.store.Upsert(key, value, cause)
		status := http.StatusOK
		if outcome == store.Inserted {
			status = http.StatusCreated
		}
		return status, causal.Extend(clientCtx, key, e), ""
	}

	return d.proxyPut(ctx, v.Bucket(bucketIdx), key, value, clientCtx)
}

func (d *Distributor) proxyPut(ctx context.Context, bucket []string, key, value string, clientCtx store.Context) (int, store.Context, string) {
	for _, addr := range bucket {
		var resp wire.PutResponse
		status, err := d.peer.Call(ctx, addr, http.MethodPut, "/kvs/keys/"+key, wire.PutRequest{Value: value, CausalContext: clientCtx}, &resp)
		if err != nil {
			continue
		}
		if status < 500 {
			return status, resp.CausalContext, resp.Error
		}
	}
	return http.StatusServiceUnavailable, clientCtx, apierr.UnableToSatisfy
}

// Delete tombstones key rather than removing it outright, so the
// deletion can still merge and gossip like any other write. The
// context appended here is the post-delete entry's, not the entry
// being replaced — otherwise a later causal check on this key would
// never observe the tombstone through the context chain.
func (d *Distributor) Delete(ctx context.Context, key string, clientCtx store.Context) (status int, newCtx store.Context, errKind string) {
	v := d.view.Load()
	bucketIdx := cluster.Assign(key, v.NumBuckets())

	if v.IsOwnBucket(bucketIdx) {
		existing, ok := d.store.Get(key)
		if !ok || existing.Deleted {
			return http.StatusNotFound, clientCtx, apierr.KeyNotExist
		}
		cause := causal.BuildCause(clientCtx)
		deleted, outcome := d.store.Delete(key, cause)
		if outcome == store.NotFound {
			return http.StatusNotFound, clientCtx, apierr.KeyNotExist
		}
		return http.StatusOK, causal.Extend(clientCtx, key, deleted), ""
	}

	return d.proxyDelete(ctx, v.Bucket(bucketIdx), key, clientCtx)
}

func (d *Distributor) proxyDelete(ctx context.Context, bucket []string, key string, clientCtx store.Context) (int, store.Context, string) {
	for _, addr := range bucket {
		var resp wire.DeleteResponse
		status, err := d.peer.Call(ctx, addr, http.MethodDelete, "/kvs/keys/"+key, wire.DeleteRequest{CausalContext: clientCtx}, &resp)
		if err != nil {
			continue
		}
		if status < 500 {
			return status, resp.CausalContext, resp.Error
		}
	}
	return http.StatusServiceUnavailable, clientCtx, apierr.UnableToSatisfy
}

// KeyCount resolves the live key count of bucketID, or of this node's
// own bucket if bucketID is nil or equal to it. For a remote bucket it
// queries every replica and returns the maximum reported count, to
// mitigate gossip lag.
func (d *Distributor) KeyCount(ctx context.Context, bucketID *int) (count int, shardID int, err error) {
	v := d.view.Load()
	own := v.BucketIndex()

	if bucketID == nil || *bucketID == own {
		return d.store.KeyCount(), own, nil
	}

	target := *bucketID
	best := -1
	for _, addr := range v.Bucket(target) {
		var resp wire.KeyCountResponse
		status, callErr := d.peer.Call(ctx, addr, http.MethodGet, "/kvs/key-count", nil, &resp)
		if callErr != nil || status != http.StatusOK {
			continue
		}
		if resp.KeyCount > best {
			best = resp.KeyCount
		}
	}
	if best < 0 {
		return 0, target, peer.ErrUnreachable
	}
	return best, target, nil
}

// Shards lists every bucket in the current view along with its live
// key count (resolved the same way KeyCount resolves a remote count).
func (d *Distributor) Shards(ctx context.Context) []wire.ShardTemplate {
	v := d.view.Load()
	out := make([]wire.ShardTemplate, v.NumBuckets())
	for i := 0; i < v.NumBuckets(); i++ {
		idx := i
		count, _, err := d.KeyCount(ctx, &idx)
		if err != nil {
			count = -1
		}
		out[i] = wire.ShardTemplate{ShardID: i, KeyCount: count, Replicas: v.Bucket(i)}
	}
	return out
}

// ShardInfo resolves a single bucket's info, per /kvs/shards/{id}.
func (d *Distributor) ShardInfo(ctx context.Context, id int) (wire.ShardInfoResponse, error) {
	v := d.view.Load()
	if id < 0 || id >= v.NumBuckets() {
		return wire.ShardInfoResponse{}, cluster.ErrInvalidView
	}
	count, _, err := d.KeyCount(ctx, &id)
	if err != nil {
		return wire.ShardInfoResponse{}, err
	}
	return wire.ShardInfoResponse{ShardID: id, KeyCount: count, Replicas: v.Bucket(id)}, nil
}

// MergeShard installs shard as the entire local store, for a node
// accepting a shard push during view-change.
func (d *Distributor) MergeShard(shard map[string]store.Entry) {
	d.store.ReplaceAll(shard)
}
