package kvstore

import (
	"go.etcd.io/bbolt"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// Cursor iterates a Bucket in key order. It narrows bbolt.Cursor's surface
// to First/Next/Seek/Key/Value/Valid/DeleteCurrent/PutCurrent (spec.md §9's
// design note), so that the deletion pipeline's writes (spec.md §4.3) go
// through the entry the cursor currently sits on. The type does not check
// how callers interleave moves and mutations, and Bucket.Cursor may be
// called again to open further cursors over the same bucket.
type Cursor struct {
	c      *bbolt.Cursor
	bucket *bbolt.Bucket
	key    []byte
	value  []byte
}

// First positions the cursor on the bucket's first entry.
func (c *Cursor) First() (key, value []byte) {
	c.key, c.value = c.c.First()
	return c.key, c.value
}

// Next advances the cursor and returns the entry it lands on, or (nil, nil)
// past the end.
func (c *Cursor) Next() (key, value []byte) {
	c.key, c.value = c.c.Next()
	return c.key, c.value
}

// Seek positions the cursor at the first key >= target.
func (c *Cursor) Seek(target []byte) (key, value []byte) {
	c.key, c.value = c.c.Seek(target)
	return c.key, c.value
}

// Key returns the key the cursor currently sits on.
func (c *Cursor) Key() []byte { return c.key }

// Value returns the value the cursor currently sits on.
func (c *Cursor) Value() []byte { return c.value }

// Valid reports whether the cursor sits on an entry (as opposed to having
// run past the end of the bucket).
func (c *Cursor) Valid() bool { return c.key != nil }

// DeleteCurrent removes the entry the cursor currently sits on, without
// moving the cursor. Callers follow it with Next or Seek before any further
// mutation; the type itself does not check this.
func (c *Cursor) DeleteCurrent() error {
	if err := c.c.Delete(); err != nil {
		return ferrexerr.IOError("failed to delete entry at cursor", err)
	}
	return nil
}

// PutCurrent overwrites the value of the entry the cursor currently sits
// on, leaving its key unchanged.
func (c *Cursor) PutCurrent(value []byte) error {
	if err := c.bucket.Put(c.key, value); err != nil {
		return ferrexerr.IOError("failed to update entry at cursor", err)
	}
	c.value = value
	return nil
}
