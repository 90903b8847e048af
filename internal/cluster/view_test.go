package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViewBuildsContiguousBuckets(t *testing.T) {
	ips := []string{"13801", "13802", "13803", "13804"}
	v, err := NewView(ips, "13803", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, v.NumBuckets())
	assert.Equal(t, []string{"13801", "13802"}, v.Bucket(0))
	assert.Equal(t, []string{"13803", "13804"}, v.Bucket(1))
	assert.Equal(t, 1, v.BucketIndex())
	assert.Equal(t, 0, v.ReplicaIndex())
	assert.True(t, v.IsOwnBucket(1))
	assert.False(t, v.IsOwnBucket(0))
}

func TestNewViewRejectsBadArity(t *testing.T) {
	_, err := NewView([]string{"a", "b", "c"}, "a", 2)
	require.ErrorIs(t, err, ErrInvalidView)
}

func TestNewViewSelfAbsent(t *testing.T) {
	v, err := NewView([]string{"a", "b"}, "z", 2)
	require.NoError(t, err)
	assert.False(t, v.HasSelf())
	assert.Equal(t, -1, v.BucketIndex())
	assert.Nil(t, v.SelfBucket(true))
}

func TestSelfBucketExcludesSelf(t *testing.T) {
	v, err := NewView([]string{"a", "b", "c"}, "b", 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, v.SelfBucket(false))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, v.SelfBucket(true))
}

func TestLeaderIsFirstIPInBucket(t *testing.T) {
	v, err := NewView([]string{"a", "b", "c", "d"}, "c", 2)
	require.NoError(t, err)
	assert.Equal(t, "c", v.Leader(1))
	assert.Equal(t, "a", v.Leader(0))
}
