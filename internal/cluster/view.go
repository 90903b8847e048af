// Package cluster holds membership and key-routing state for a node:
//
//   - View — the current ordered membership, partitioned into replica
//     buckets of a fixed replication factor.
//   - Hasher — the deterministic key → bucket mapping.
//
// Big idea:
//
// Every node in the cluster agrees on the same View for the same set
// of IPs and replication factor, so two nodes that haven't yet
// gossiped still route a given key to the same bucket.
package cluster

import (
	"errors"
	"fmt"
)

// ErrInvalidView is returned when a View's inputs don't form a valid
// partition: the IP count must divide evenly by the replication factor.
var ErrInvalidView = errors.New("invalid_view")

// View is the ordered membership list plus replication factor, sliced
// into contiguous replica buckets. It is immutable after construction;
// a view change replaces it wholesale rather than mutating it in place.
type View struct {
	allIPs      []string
	selfAddr    string
	replFactor  int
	buckets     [][]string
	bucketIndex int // index of the bucket containing selfAddr, or -1
	replicaIndex int // selfAddr's position within its bucket, or -1
}

// NewView validates the inputs and computes the bucket partition.
//
// len(allIPs) must be divisible by replFactor — buckets are formed by
// slicing allIPs into contiguous groups of replFactor, in order, so an
// uneven split has no well-defined partition.
func NewView(allIPs []string, selfAddr string, replFactor int) (*View, error) {
	if replFactor <= 0 {
		return nil, fmt.Errorf("%w: replication factor must be positive, got %d", ErrInvalidView, replFactor)
	}
	if len(allIPs)%replFactor != 0 {
		return nil, fmt.Errorf("%w: %d ips not divisible by replication factor %d", ErrInvalidView, len(allIPs), replFactor)
	}

	v := &View{
		allIPs:       allIPs,
		selfAddr:     selfAddr,
		replFactor:   replFactor,
		bucketIndex:  -1,
		replicaIndex: -1,
	}
	v.buildBuckets()
	return v, nil
}

// buildBuckets slices allIPs into contiguous groups of replFactor and
// locates selfAddr's bucket (first match, per spec).
func (v *View) buildBuckets() {
	v.buckets = make([][]string, 0, len(v.allIPs)/v.replFactor)
	for start := 0; start < len(v.allIPs); start += v.replFactor {
		end := start + v.replFactor
		bucket := append([]string(nil), v.allIPs[start:end]...)
		v.buckets = append(v.buckets, bucket)
	}

	for idx, bucket := range v.buckets {
		for ridx, ip := range bucket {
			if ip == v.selfAddr {
				v.bucketIndex = idx
				v.replicaIndex = ridx
				return
			}
		}
	}
}

// AllIPs returns the full ordered membership list.
func (v *View) AllIPs() []string {
	return v.allIPs
}

// SelfAddr returns this node's own address as given at construction.
func (v *View) SelfAddr() string {
	return v.selfAddr
}

// ReplFactor returns the replication factor this view was built with.
func (v *View) ReplFactor() int {
	return v.replFactor
}

// NumBuckets returns the number of replica buckets in this view.
func (v *View) NumBuckets() int {
	return len(v.buckets)
}

// IsOwnBucket reports whether bucket index i is this node's own bucket.
func (v *View) IsOwnBucket(i int) bool {
	return v.HasSelf() && i == v.bucketIndex
}

// HasSelf reports whether selfAddr was found anywhere in allIPs.
func (v *View) HasSelf() bool {
	return v.bucketIndex >= 0
}

// BucketIndex returns the index of the bucket containing selfAddr, or
// -1 if selfAddr isn't part of this view.
func (v *View) BucketIndex() int {
	return v.bucketIndex
}

// ReplicaIndex returns selfAddr's position within its own bucket, or -1.
func (v *View) ReplicaIndex() int {
	return v.replicaIndex
}

// SelfBucket returns the IP addresses in this node's own replica
// bucket. If includeSelf is false, selfAddr is filtered out — handy
// for "who else is in my bucket" peer fan-out.
func (v *View) SelfBucket(includeSelf bool) []string {
	if !v.HasSelf() {
		return nil
	}
	return filterBucket(v.buckets[v.bucketIndex], v.selfAddr, includeSelf)
}

// Bucket returns a copy of the IP addresses in bucket i.
func (v *View) Bucket(i int) []string {
	if i < 0 || i >= len(v.buckets) {
		return nil
	}
	return append([]string(nil), v.buckets[i]...)
}

// AllBucketIDs returns 0..NumBuckets()-1.
func (v *View) AllBucketIDs() []int {
	ids := make([]int, len(v.buckets))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// Leader returns the first IP in bucket i — used only for
// deterministic tie-breaking, never a real election.
func (v *View) Leader(i int) string {
	b := v.Bucket(i)
	if len(b) == 0 {
		return ""
	}
	return b[0]
}

func filterBucket(bucket []string, self string, includeSelf bool) []string {
	if includeSelf {
		return append([]string(nil), bucket...)
	}
	out := make([]string, 0, len(bucket))
	for _, ip := range bucket {
		if ip != self {
			out = append(out, ip)
		}
	}
	return out
}
