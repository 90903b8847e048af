package distributor

import (
	"context"
	"net/http"
	"sync"

	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/store"
	"distributed-kvstore/internal/wire"
)

// PropagateView is the follower side of a view change: a peer
// receiving PUT /kvs/view-change-propagate installs the new view and
// hands its entire pre-change shard back to the caller, who merges it
// with every other replica's shard before re-partitioning. The view is
// replaced (and gossip rearmed) whether or not this node ends up
// owning anything under the new view.
func (d *Distributor) PropagateView(ips []string, replFactor int) (map[string]store.Entry, error) {
	old := d.view.Load()
	newView, err := cluster.NewView(ips, old.SelfAddr(), replFactor)
	if err != nil {
		return nil, err
	}

	shard := d.store.JSON(true)
	d.view.Store(newView)
	d.rearmGossip(newView)
	return shard, nil
}

// ChangeView is the leader side of the view-change protocol: propagate
// to the union of old and new membership, merge every returned shard
// via last-write-wins, reset context across the merged result,
// re-partition by the new buckets, push each partition out, and
// install this node's own partition.
func (d *Distributor) ChangeView(ctx context.Context, ips []string, replFactor int) (wire.ViewChangeResponse, error) {
	old := d.view.Load()
	union := unionIPs(old.AllIPs(), ips, old.SelfAddr())

	newView, err := cluster.NewView(ips, old.SelfAddr(), replFactor)
	if err != nil {
		return wire.ViewChangeResponse{}, err
	}

	central := d.store.JSON(true)
	d.view.Store(newView)
	d.rearmGossip(newView)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, addr := range union {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			var resp wire.ViewChangePropagateResponse
			status, err := d.peer.Call(ctx, addr, http.MethodPut, "/kvs/view-change-propagate",
				wire.ViewChangePropagateRequest{View: ips, ReplFactor: replFactor}, &resp)
			if err != nil || status/100 != 2 {
				d.log.Debug().Str("peer", addr).Err(err).Int("status", status).Msg("view-change propagate failed; left to later gossip")
				return
			}
			mu.Lock()
			central = store.Merge(central, resp.KVS)
			mu.Unlock()
		}(addr)
	}
	wg.Wait()

	central = resetContext(central)
	partitions := partitionByBucket(central, newView)

	for i, partition := range partitions {
		bucket := newView.Bucket(i)
		for _, addr := range bucket {
			if addr == newView.SelfAddr() {
				continue
			}
			go func(addr string, partition map[string]store.Entry) {
				_, err := d.peer.Call(context.Background(), addr, http.MethodPut, "/kvs/shard", wire.ShardPushRequest{KVS: partition}, nil)
				if err != nil {
					d.log.Debug().Str("peer", addr).Err(err).Msg("shard push failed; left to later gossip")
				}
			}(addr, partition)
		}
	}

	if newView.HasSelf() {
		d.store.ReplaceAll(partitions[newView.BucketIndex()])
	}

	shards := make([]wire.ShardTemplate, len(partitions))
	for i, p := range partitions {
		shards[i] = wire.ShardTemplate{ShardID: i, KeyCount: len(p), Replicas: newView.Bucket(i)}
	}
	return wire.ViewChangeResponse{Message: "View change successful", Shards: shards}, nil
}

// unionIPs computes (oldIPs ∪ newIPs) \ {self}, preserving first-seen
// order.
func unionIPs(oldIPs, newIPs []string, self string) []string {
	seen := make(map[string]bool, len(oldIPs)+len(newIPs))
	var out []string
	add := func(ip string) {
		if ip == self || seen[ip] {
			return
		}
		seen[ip] = true
		out = append(out, ip)
	}
	for _, ip := range oldIPs {
		add(ip)
	}
	for _, ip := range newIPs {
		add(ip)
	}
	return out
}

// resetContext applies KVStore.ResetContext's semantics (drop
// tombstones, zero cause lists, stamp a common last_write) to a bare
// map by round-tripping it through a throwaway Store, rather than
// duplicating that logic here.
func resetContext(shard map[string]store.Entry) map[string]store.Entry {
	tmp := store.New()
	tmp.ReplaceAll(shard)
	tmp.ResetContext()
	return tmp.JSON(true)
}

// partitionByBucket re-hashes every key in shard against v's buckets.
func partitionByBucket(shard map[string]store.Entry, v *cluster.View) []map[string]store.Entry {
	partitions := make([]map[string]store.Entry, v.NumBuckets())
	for i := range partitions {
		partitions[i] = make(map[string]store.Entry)
	}
	for key, e := range shard {
		idx := cluster.Assign(key, v.NumBuckets())
		partitions[idx][key] = e
	}
	return partitions
}
