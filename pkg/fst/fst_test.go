package fst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestBuild_ContainsInsertedTerms(t *testing.T) {
	s, err := Build(terms("banana", "apple", "cherry"))
	require.NoError(t, err)

	assert.True(t, s.Contains([]byte("apple")))
	assert.True(t, s.Contains([]byte("banana")))
	assert.False(t, s.Contains([]byte("grape")))
	assert.Equal(t, 3, s.Len())
}

func TestBuild_DeduplicatesTerms(t *testing.T) {
	s, err := Build(terms("apple", "apple", "banana"))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
}

func TestLoad_RoundTrips(t *testing.T) {
	s, err := Build(terms("apple", "banana"))
	require.NoError(t, err)

	loaded, err := Load(s.Bytes())
	require.NoError(t, err)

	assert.True(t, loaded.Contains([]byte("apple")))
	assert.Equal(t, 2, loaded.Len())
}

func TestTerms_ReturnsAscendingOrder(t *testing.T) {
	s, err := Build(terms("banana", "apple", "cherry"))
	require.NoError(t, err)

	got, err := s.Terms()
	require.NoError(t, err)

	want := terms("apple", "banana", "cherry")
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestDifference_RemovesDeletedTerms(t *testing.T) {
	words, err := Build(terms("apple", "banana", "cherry"))
	require.NoError(t, err)

	toDelete, err := Build(terms("banana"))
	require.NoError(t, err)

	result, err := Difference(words, toDelete)
	require.NoError(t, err)

	assert.True(t, result.Contains([]byte("apple")))
	assert.True(t, result.Contains([]byte("cherry")))
	assert.False(t, result.Contains([]byte("banana")))
	assert.Equal(t, 2, result.Len())
}

func TestHasPrefix(t *testing.T) {
	s, err := Build(terms("application", "apple", "banana"))
	require.NoError(t, err)

	assert.True(t, s.HasPrefix([]byte("app")))
	assert.False(t, s.HasPrefix([]byte("xyz")))
}
