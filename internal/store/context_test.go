package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTripsThroughJSON(t *testing.T) {
	c := Context{
		{Key: "a", Meta: Meta{LastWrite: 1, Cause: []CausePair{{Key: "z", LastWrite: 0}}}},
		{Key: "b", Meta: Meta{LastWrite: 2, Deleted: true}},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var out Context
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, c, out)
}

func TestContextEmptyMarshalsAsArray(t *testing.T) {
	var c Context
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestContextAcceptsEmptyStringAndObjectAsNoContext(t *testing.T) {
	for _, input := range []string{`""`, `{}`, `null`} {
		var c Context
		require.NoError(t, json.Unmarshal([]byte(input), &c))
		assert.Nil(t, c)
	}
}

func TestContextGetReturnsMostRecentOccurrence(t *testing.T) {
	c := Context{
		{Key: "k", Meta: Meta{LastWrite: 1}},
		{Key: "k", Meta: Meta{LastWrite: 2}},
	}
	m, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, int64(2), m.LastWrite)
}

func TestContextGetMissingKey(t *testing.T) {
	c := Context{{Key: "k", Meta: Meta{LastWrite: 1}}}
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestContextExtendDoesNotMutateOriginal(t *testing.T) {
	c := Context{{Key: "a", Meta: Meta{LastWrite: 1}}}
	extended := c.Extend("b", Meta{LastWrite: 2})

	assert.Len(t, c, 1)
	assert.Len(t, extended, 2)
}

func TestContextCauseProjectsKeyAndLastWrite(t *testing.T) {
	c := Context{
		{Key: "a", Meta: Meta{LastWrite: 1}},
		{Key: "b", Meta: Meta{LastWrite: 2}},
	}
	assert.Equal(t, []CausePair{{Key: "a", LastWrite: 1}, {Key: "b", LastWrite: 2}}, c.Cause())
}

func TestContextCauseOfEmptyIsNil(t *testing.T) {
	var c Context
	assert.Nil(t, c.Cause())
}
