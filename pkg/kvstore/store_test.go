package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDatabaseAndLockFile(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, dir+"/data.db")
	assert.FileExists(t, dir+"/.ferrex.lock")
}

func TestOpenWithSize_ZeroBehavesLikeOpen(t *testing.T) {
	// Given: a fresh directory
	dir := t.TempDir()

	// When: opening with an explicit zero size hint
	s, err := OpenWithSize(dir, 0)

	// Then: it succeeds identically to Open
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, dir+"/data.db")
}

func TestOpenWithSize_PositiveSizeStillOpensSuccessfully(t *testing.T) {
	// Given: a fresh directory
	dir := t.TempDir()

	// When: opening with a positive size hint
	s, err := OpenWithSize(dir, 64)

	// Then: it succeeds; the hint only pre-sizes bbolt's initial mmap
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, dir+"/data.db")
}

func TestTryOpen_FailsWhileAnotherHoldsTheLock(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	defer s1.Close()

	s2, acquired, err := TryOpen(dir)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Nil(t, s2)
}

func TestUpdate_CreateBucketAndPutGet(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	err = s.Update(func(tx *Tx) error {
		b, err := tx.CreateBucketIfNotExists("docs")
		require.NoError(t, err)
		return b.Put([]byte("a"), []byte("1"))
	})
	require.NoError(t, err)

	err = s.View(func(tx *Tx) error {
		b := tx.Bucket("docs")
		require.NotNil(t, b)
		assert.Equal(t, []byte("1"), b.Get([]byte("a")))
		return nil
	})
	require.NoError(t, err)
}

func TestCursor_IteratesInKeyOrder(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Update(func(tx *Tx) error {
		b, err := tx.CreateBucketIfNotExists("docs")
		require.NoError(t, err)
		require.NoError(t, b.Put([]byte("b"), []byte("2")))
		require.NoError(t, b.Put([]byte("a"), []byte("1")))
		require.NoError(t, b.Put([]byte("c"), []byte("3")))
		return nil
	}))

	var keys []string
	require.NoError(t, s.View(func(tx *Tx) error {
		c := tx.Bucket("docs").Cursor()
		for k, _ := c.First(); c.Valid(); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	}))

	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestCursor_DeleteCurrentRemovesEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Update(func(tx *Tx) error {
		b, err := tx.CreateBucketIfNotExists("docs")
		require.NoError(t, err)
		require.NoError(t, b.Put([]byte("a"), []byte("1")))
		require.NoError(t, b.Put([]byte("b"), []byte("2")))
		return nil
	}))

	require.NoError(t, s.Update(func(tx *Tx) error {
		c := tx.Bucket("docs").Cursor()
		for k, _ := c.First(); c.Valid(); k, _ = c.Next() {
			if string(k) == "a" {
				require.NoError(t, c.DeleteCurrent())
			}
		}
		return nil
	}))

	require.NoError(t, s.View(func(tx *Tx) error {
		b := tx.Bucket("docs")
		assert.Nil(t, b.Get([]byte("a")))
		assert.Equal(t, []byte("2"), b.Get([]byte("b")))
		return nil
	}))
}

func TestCursor_PutCurrentOverwritesValue(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Update(func(tx *Tx) error {
		b, err := tx.CreateBucketIfNotExists("docs")
		require.NoError(t, err)
		return b.Put([]byte("a"), []byte("1"))
	}))

	require.NoError(t, s.Update(func(tx *Tx) error {
		c := tx.Bucket("docs").Cursor()
		c.Seek([]byte("a"))
		return c.PutCurrent([]byte("updated"))
	}))

	require.NoError(t, s.View(func(tx *Tx) error {
		assert.Equal(t, []byte("updated"), tx.Bucket("docs").Get([]byte("a")))
		return nil
	}))
}

func TestAppendBucket_RejectsNonIncreasingKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	err = s.Update(func(tx *Tx) error {
		b, err := tx.CreateBucketIfNotExists("levels")
		require.NoError(t, err)
		ab := b.AsAppendBucket()
		require.NoError(t, ab.Append([]byte("a"), []byte("1")))
		require.NoError(t, ab.Append([]byte("b"), []byte("2")))
		return ab.Append([]byte("b"), []byte("3"))
	})

	assert.Error(t, err)
}

func TestAppendBucket_AcceptsStrictlyIncreasingKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	err = s.Update(func(tx *Tx) error {
		b, err := tx.CreateBucketIfNotExists("levels")
		require.NoError(t, err)
		ab := b.AsAppendBucket()
		require.NoError(t, ab.Append([]byte("a"), []byte("1")))
		require.NoError(t, ab.Append([]byte("b"), []byte("2")))
		return nil
	})

	assert.NoError(t, err)
}
