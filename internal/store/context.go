package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContextEntry is one (key, meta) tuple in a client's causal context,
// in the order the client encountered the key.
type ContextEntry struct {
	Key  string
	Meta Meta
}

// MarshalJSON encodes ContextEntry as the wire's [key, meta] tuple.
func (c ContextEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.Key, c.Meta})
}

// UnmarshalJSON decodes the [key, meta] tuple form.
func (c *ContextEntry) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &c.Key); err != nil {
		return err
	}
	return json.Unmarshal(arr[1], &c.Meta)
}

// Context is the ordered sequence of keys a client has observed,
// opaque to the client but a structured term in-protocol. An empty
// Context means "no prior observations".
type Context []ContextEntry

// MarshalJSON always encodes Context as a JSON array, even when empty,
// so the wire form is unambiguous for peers decoding it.
func (c Context) MarshalJSON() ([]byte, error) {
	if len(c) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]ContextEntry(c))
}

// UnmarshalJSON accepts the ordered-tuple-list form, and also accepts
// an empty string or empty object as "no context", both of which a
// lenient client may send.
func (c *Context) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch trimmed {
	case `""`, `{}`, `null`, ``:
		*c = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid causal context: %w", err)
	}
	entries := make([]ContextEntry, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &entries[i]); err != nil {
			return fmt.Errorf("invalid causal context entry %d: %w", i, err)
		}
	}
	*c = entries
	return nil
}

// Get returns the metadata for key's most recent occurrence in the
// context, and whether it was found. A client may encounter the same
// key twice (e.g. read then write); the context is append-only, so
// the last occurrence is the authoritative one.
func (c Context) Get(key string) (Meta, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Key == key {
			return c[i].Meta, true
		}
	}
	return Meta{}, false
}

// Extend appends (key, meta) to the end of the context, returning the
// new context. The original slice is left untouched.
func (c Context) Extend(key string, meta Meta) Context {
	out := make(Context, len(c), len(c)+1)
	copy(out, c)
	return append(out, ContextEntry{Key: key, Meta: meta})
}

// Cause projects the context into the ordered (key, last_write) list
// stored on a new entry's Cause field: one pair per context entry,
// duplicates and order preserved.
func (c Context) Cause() []CausePair {
	if len(c) == 0 {
		return nil
	}
	out := make([]CausePair, len(c))
	for i, e := range c {
		out[i] = CausePair{Key: e.Key, LastWrite: e.Meta.LastWrite}
	}
	return out
}
