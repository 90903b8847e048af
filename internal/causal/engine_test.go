package causal

import (
	"context"
	"errors"
	"testing"

	"distributed-kvstore/internal/store"

	"github.com/stretchr/testify/assert"
)

type fakeLocal struct {
	owned map[string]bool
	data  map[string]store.Entry
}

func (f *fakeLocal) Owns(key string) bool { return f.owned[key] }
func (f *fakeLocal) Get(key string) (store.Entry, bool) {
	e, ok := f.data[key]
	return e, ok
}

type fakeProber struct {
	lastWrite int64
	found     bool
	err       error
}

func (f *fakeProber) ProbeLastWrite(ctx context.Context, key string) (int64, bool, error) {
	return f.lastWrite, f.found, f.err
}

func TestSatisfiedTrivialOnEmptyContext(t *testing.T) {
	e := New(&fakeLocal{}, &fakeProber{})
	assert.True(t, e.Satisfied(context.Background(), nil))
}

func TestSatisfiedLocalCausePresentAndFresh(t *testing.T) {
	local := &fakeLocal{
		owned: map[string]bool{"a": true},
		data:  map[string]store.Entry{"a": {LastWrite: 10}},
	}
	e := New(local, &fakeProber{})

	ctx := store.Context{{Key: "k", Meta: store.Meta{Cause: []store.CausePair{{Key: "a", LastWrite: 10}}}}}
	assert.True(t, e.Satisfied(context.Background(), ctx))
}

func TestSatisfiedLocalCauseStale(t *testing.T) {
	local := &fakeLocal{
		owned: map[string]bool{"a": true},
		data:  map[string]store.Entry{"a": {LastWrite: 5}},
	}
	e := New(local, &fakeProber{})

	ctx := store.Context{{Key: "k", Meta: store.Meta{Cause: []store.CausePair{{Key: "a", LastWrite: 10}}}}}
	assert.False(t, e.Satisfied(context.Background(), ctx))
}

func TestSatisfiedLocalCauseMissing(t *testing.T) {
	local := &fakeLocal{owned: map[string]bool{"a": true}, data: map[string]store.Entry{}}
	e := New(local, &fakeProber{})

	ctx := store.Context{{Key: "k", Meta: store.Meta{Cause: []store.CausePair{{Key: "a", LastWrite: 10}}}}}
	assert.False(t, e.Satisfied(context.Background(), ctx))
}

func TestSatisfiedRemoteCauseProbed(t *testing.T) {
	local := &fakeLocal{owned: map[string]bool{}}
	prober := &fakeProber{lastWrite: 20, found: true}
	e := New(local, prober)

	ctx := store.Context{{Key: "k", Meta: store.Meta{Cause: []store.CausePair{{Key: "remote", LastWrite: 10}}}}}
	assert.True(t, e.Satisfied(context.Background(), ctx))
}

func TestSatisfiedRemoteProbeUnreachable(t *testing.T) {
	local := &fakeLocal{owned: map[string]bool{}}
	prober := &fakeProber{err: errors.New("unreachable")}
	e := New(local, prober)

	ctx := store.Context{{Key: "k", Meta: store.Meta{Cause: []store.CausePair{{Key: "remote", LastWrite: 10}}}}}
	assert.False(t, e.Satisfied(context.Background(), ctx))
}

func TestSatisfiedRemoteProbeStale(t *testing.T) {
	local := &fakeLocal{owned: map[string]bool{}}
	prober := &fakeProber{lastWrite: 5, found: true}
	e := New(local, prober)

	ctx := store.Context{{Key: "k", Meta: store.Meta{Cause: []store.CausePair{{Key: "remote", LastWrite: 10}}}}}
	assert.False(t, e.Satisfied(context.Background(), ctx))
}

func TestExtendAppendsEntryContext(t *testing.T) {
	entry := store.Entry{LastWrite: 1, Deleted: false}
	extended := Extend(nil, "k", entry)
	assert.Len(t, extended, 1)
	assert.Equal(t, "k", extended[0].Key)
	assert.Equal(t, entry.Context(), extended[0].Meta)
}

func TestBuildCauseProjectsContext(t *testing.T) {
	ctx := store.Context{{Key: "a", Meta: store.Meta{LastWrite: 1}}}
	assert.Equal(t, []store.CausePair{{Key: "a", LastWrite: 1}}, BuildCause(ctx))
}
