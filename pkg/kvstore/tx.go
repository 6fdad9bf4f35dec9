package kvstore

import (
	"go.etcd.io/bbolt"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// Tx is a bbolt transaction, read-only or read-write depending on how it
// was obtained from Store.
type Tx struct {
	tx *bbolt.Tx
}

// Bucket returns the named bucket, or nil if it does not exist.
func (t *Tx) Bucket(name string) *Bucket {
	b := t.tx.Bucket([]byte(name))
	if b == nil {
		return nil
	}
	return &Bucket{b: b}
}

// CreateBucketIfNotExists returns the named bucket, creating it first if
// necessary. Only valid within a read-write transaction.
func (t *Tx) CreateBucketIfNotExists(name string) (*Bucket, error) {
	b, err := t.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, ferrexerr.IOError("failed to create bucket "+name, err)
	}
	return &Bucket{b: b}, nil
}

// DeleteBucket removes the named bucket entirely.
func (t *Tx) DeleteBucket(name string) error {
	if err := t.tx.DeleteBucket([]byte(name)); err != nil && err != bbolt.ErrBucketNotFound {
		return ferrexerr.IOError("failed to delete bucket "+name, err)
	}
	return nil
}

// Writable reports whether this transaction can mutate the store.
func (t *Tx) Writable() bool { return t.tx.Writable() }
