package kvstore

import (
	"go.etcd.io/bbolt"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// Bucket is a named key/value namespace within a transaction, ordered by
// byte-lexicographic key comparison.
type Bucket struct {
	b *bbolt.Bucket
}

// Get returns the value stored under key, or nil if absent. The returned
// slice is only valid for the lifetime of the enclosing transaction.
func (b *Bucket) Get(key []byte) []byte { return b.b.Get(key) }

// Put stores value under key, overwriting any existing entry.
func (b *Bucket) Put(key, value []byte) error {
	if err := b.b.Put(key, value); err != nil {
		return ferrexerr.IOError("failed to write entry", err)
	}
	return nil
}

// Delete removes key's entry, if present.
func (b *Bucket) Delete(key []byte) error {
	if err := b.b.Delete(key); err != nil {
		return ferrexerr.IOError("failed to delete entry", err)
	}
	return nil
}

// Cursor returns a Cursor for forward iteration and in-place mutation of
// this bucket, narrowed to the del/put-current discipline spec.md §9's
// design note calls for: a cursor may either advance or mutate the entry it
// currently sits on, never both without re-seeking.
func (b *Bucket) Cursor() *Cursor {
	return &Cursor{c: b.b.Cursor(), bucket: b.b}
}

// Stats reports the number of key/value pairs currently in the bucket.
func (b *Bucket) Stats() int {
	return b.b.Stats().KeyN
}

// AsAppendBucket wraps b as an AppendBucket for monotonic bulk writes.
func (b *Bucket) AsAppendBucket() *AppendBucket {
	return &AppendBucket{b: b}
}
