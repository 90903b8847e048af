package distributor

import (
	"context"
	"net/http"

	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/store"
	"distributed-kvstore/internal/wire"
)

// rearmGossip clears any previously scheduled gossip job and, if
// replication actually fans out to more than one replica and this
// node is a member of the current view, starts a fresh ticker at the
// configured interval. Called on construction and on every view
// change, so a stale job never outlives the view it was scheduled for.
func (d *Distributor) rearmGossip(v *cluster.View) {
	d.scheduler.ClearJobs()
	if v.ReplFactor() <= 1 || !v.HasSelf() {
		return
	}
	d.scheduler.AddJob(gossipJobID, d.gossipInterval, d.gossipTick)
}

// gossipTick pushes the full local shard to every other replica in
// this node's own bucket. Failures are logged and ignored — the next
// tick tries again.
func (d *Distributor) gossipTick() {
	v := d.view.Load()
	if !v.HasSelf() {
		return
	}
	peers := v.SelfBucket(false)
	if len(peers) == 0 {
		return
	}

	shard := d.store.JSON(true)
	for _, addr := range peers {
		status, err := d.peer.Call(context.Background(), addr, http.MethodPut, "/kvs/gossip", wire.GossipRequest{KVS: shard}, nil)
		if err != nil {
			d.log.Debug().Str("peer", addr).Err(err).Msg("gossip push unreachable")
			continue
		}
		if status >= 300 {
			d.log.Debug().Str("peer", addr).Int("status", status).Msg("gossip push rejected")
		}
	}
}

// MergeGossip merges a peer's pushed shard into the local store via
// last-write-wins, preserving tombstones and never touching context
// timestamps.
func (d *Distributor) MergeGossip(shard map[string]store.Entry) {
	d.store.MergeFrom(shard)
}
