// Package store implements the per-node replicated key-value engine:
// an in-memory map from key to versioned Entry, with tombstones and
// per-key causal metadata, plus last-write-wins merge for gossip
// convergence.
//
// Big idea:
//
// Every write stamps a wall-clock last_write time and a cause list —
// the causal predecessors the client had observed at write time. The
// cause list drives the causal-consistency check in internal/causal;
// last_write alone drives convergence when two replicas disagree
// (internal/store's own Merge never looks at cause).
package store

import (
	"encoding/json"
	"time"
)

// CausePair is one (key, last_write) causal predecessor captured from
// a client's context at write time.
type CausePair struct {
	Key       string
	LastWrite int64
}

// MarshalJSON encodes CausePair as the wire's [key, last_write] tuple.
func (c CausePair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.Key, c.LastWrite})
}

// UnmarshalJSON decodes the [key, last_write] tuple form.
func (c *CausePair) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &c.Key); err != nil {
		return err
	}
	return json.Unmarshal(arr[1], &c.LastWrite)
}

// Meta is the causal metadata carried for a key, both inside a stored
// Entry and inside a client Context tuple: {last_write, cause, deleted}.
type Meta struct {
	LastWrite int64       `json:"last_write"`
	Cause     []CausePair `json:"cause"`
	Deleted   bool        `json:"deleted"`
}

// Entry is a per-key record: value plus causal metadata. Value is
// retained even when Deleted is true — merge never needs it, but
// keeping it avoids a special zero-value case.
type Entry struct {
	Value     string
	LastWrite int64
	Cause     []CausePair
	Deleted   bool
}

type entryJSON struct {
	Value     string      `json:"value"`
	LastWrite int64       `json:"last_write"`
	Cause     []CausePair `json:"cause"`
	Deleted   bool        `json:"deleted"`
}

// MarshalJSON encodes Entry as {value, last_write, cause, deleted}.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Value:     e.Value,
		LastWrite: e.LastWrite,
		Cause:     e.Cause,
		Deleted:   e.Deleted,
	})
}

// UnmarshalJSON decodes {value, last_write, cause, deleted}.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var j entryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*e = Entry(j)
	return nil
}

// Context returns the {last_write, cause, deleted} metadata a client
// context tuple carries for this entry after a successful operation.
func (e Entry) Context() Meta {
	return Meta{LastWrite: e.LastWrite, Cause: e.Cause, Deleted: e.Deleted}
}

// now stamps wall-clock nanoseconds; nanosecond resolution just keeps
// same-millisecond writes from tying more often than strictly
// necessary (ties still break arbitrarily, just less often).
func now() int64 {
	return time.Now().UnixNano()
}
