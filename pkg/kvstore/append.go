package kvstore

import (
	"bytes"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// AppendBucket is the "append-only bulk writer" of spec.md §6: a write
// helper over a Bucket that rejects any key not strictly greater than the
// last appended key, the precondition spec.md §4.4 step 3's level pyramid
// builder and §3's compact-record batch layout rely on for their
// sequential, sorted-run writes.
type AppendBucket struct {
	b       *Bucket
	lastKey []byte
	started bool
}

// Append writes key/value, requiring key > the previously appended key.
func (a *AppendBucket) Append(key, value []byte) error {
	if a.started && bytes.Compare(key, a.lastKey) <= 0 {
		return ferrexerr.InternalError("append key is not strictly increasing", nil).
			WithDetail("key", string(key)).
			WithDetail("last_key", string(a.lastKey))
	}
	if err := a.b.Put(key, value); err != nil {
		return err
	}
	a.lastKey = append([]byte(nil), key...)
	a.started = true
	return nil
}
