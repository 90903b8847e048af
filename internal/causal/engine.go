// Package causal decides whether a client-supplied Context can be
// served locally without violating causality, and extends a Context
// after a successful operation.
//
// The engine owns no state of its own: it reads the local store
// directly for causal predecessors owned by this node's bucket, and
// asks an injected Prober for predecessors owned elsewhere.
package causal

import (
	"context"

	"distributed-kvstore/internal/store"
)

// Prober issues a remote GET for key at whatever bucket owns it and
// reports the entry's last_write, whether the key currently exists,
// and any transport-level failure. Distributor supplies the concrete
// implementation (a proxy GET through internal/peer); Engine only
// needs this much of it.
type Prober interface {
	ProbeLastWrite(ctx context.Context, key string) (lastWrite int64, found bool, err error)
}

// Local resolves whether a key belongs to this node's own bucket and,
// if so, fetches its entry. Distributor supplies this too, so Engine
// never needs to know about Hasher or View directly.
type Local interface {
	Owns(key string) bool
	Get(key string) (store.Entry, bool)
}

type Engine struct {
	local  Local
	prober Prober
}

func New(local Local, prober Prober) *Engine {
	return &Engine{local: local, prober: prober}
}

// Satisfied reports whether every cause pair named by every context
// entry has a causal predecessor on record, locally or remotely, at
// least as recent as the recorded timestamp. An empty context is
// trivially satisfied.
func (e *Engine) Satisfied(ctx context.Context, clientCtx store.Context) bool {
	for _, entry := range clientCtx {
		for _, cause := range entry.Meta.Cause {
			if !e.causeSatisfied(ctx, cause) {
				return false
			}
		}
	}
	return true
}

func (e *Engine) causeSatisfied(ctx context.Context, cause store.CausePair) bool {
	if e.local.Owns(cause.Key) {
		entry, ok := e.local.Get(cause.Key)
		return ok && entry.LastWrite >= cause.LastWrite
	}

	lastWrite, found, err := e.prober.ProbeLastWrite(ctx, cause.Key)
	if err != nil || !found {
		return false
	}
	return lastWrite >= cause.LastWrite
}

// Extend appends (key, entry.Context()) to clientCtx, the way every
// successful GET/PUT/DELETE grows the caller's causal context.
func Extend(clientCtx store.Context, key string, entry store.Entry) store.Context {
	return clientCtx.Extend(key, entry.Context())
}

// BuildCause projects clientCtx into the ordered (key, last_write)
// list a new write stamps onto its Entry.Cause.
func BuildCause(clientCtx store.Context) []store.CausePair {
	return clientCtx.Cause()
}
