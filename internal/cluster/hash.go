package cluster

import (
	"math/big"

	"github.com/spaolacci/murmur3"
)

// two128 is 2^128, the size of the murmur3 x64-128 output space.
var two128 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 128))

// Assign deterministically maps key to a bucket index in
// [0, numBuckets). It hashes key with MurmurHash3 x64-128 to produce
// an unsigned 128-bit value h, computes p = h / 2^128 ∈ [0,1), and
// returns floor(p * numBuckets), clamped to numBuckets-1.
//
// A big.Float ratio is used instead of a float64 conversion because a
// 128-bit hash loses meaningful low-order bits the moment it's narrowed
// to a 64-bit float's ~53 bits of mantissa — for keys whose hashes
// cluster near a bucket boundary that truncation can flip the result,
// breaking the determinism the spec requires across nodes.
//
// Determinism is the whole point: every node, given the same key and
// the same number of buckets, must compute the same bucket index
// without any coordination.
func Assign(key string, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}

	hi, lo := murmur3.Sum128([]byte(key))
	h := new(big.Int).Lsh(new(big.Int).SetUint64(hi), 64)
	h.Or(h, new(big.Int).SetUint64(lo))

	p := new(big.Float).SetInt(h)
	p.Quo(p, two128)
	p.Mul(p, big.NewFloat(float64(numBuckets)))

	idx, _ := p.Int64()
	if idx >= int64(numBuckets) {
		idx = int64(numBuckets) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return int(idx)
}
