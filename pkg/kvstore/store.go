// Package kvstore is the engine's ordered key/value store binding: the
// concrete realization of spec.md §6's "ordered key/value store interface",
// built on go.etcd.io/bbolt. Named buckets stand in for the spec's "named
// databases"; Cursor narrows bbolt.Cursor to the del/put-current discipline
// spec.md §9 calls for.
package kvstore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.etcd.io/bbolt"

	ferrexerr "github.com/cerplabs/ferrex/internal/errors"
)

// lockFileName is the single-writer guard enforcing spec.md §5's "single
// writer... per index" envelope across processes, adapted from the
// teacher's internal/embed/lock.go FileLock.
const lockFileName = ".ferrex.lock"

// Store is an opened index directory: a bbolt database plus the
// cross-process write lock guarding it.
type Store struct {
	db   *bbolt.DB
	lock *flock.Flock
	path string
}

// Open opens (creating if necessary) the bbolt database at <dir>/data.db,
// after acquiring an exclusive gofrs/flock lock on <dir>/.ferrex.lock.
// Open blocks until the lock is available; callers wanting a non-blocking
// open should use TryOpen.
func Open(dir string) (*Store, error) {
	return OpenWithSize(dir, 0)
}

// OpenWithSize is like Open, but passes sizeMB through to bbolt's
// InitialMmapSize hint (0 leaves bbolt's own default). Unlike LMDB's
// hard map-size ceiling, this only pre-sizes the initial mmap; bbolt grows
// the mapping on demand regardless, so sizeMB never rejects a write for
// being "too large" the way the spec.md's configured size might suggest.
func OpenWithSize(dir string, sizeMB int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferrexerr.IOError("failed to create index directory", err)
	}

	lockPath := filepath.Join(dir, lockFileName)
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return nil, ferrexerr.IOError("failed to acquire index lock", err)
	}

	opts := &bbolt.Options{Timeout: 5 * time.Second}
	if sizeMB > 0 {
		opts.InitialMmapSize = sizeMB * 1024 * 1024
	}

	dbPath := filepath.Join(dir, "data.db")
	db, err := bbolt.Open(dbPath, 0o644, opts)
	if err != nil {
		_ = fl.Unlock()
		return nil, ferrexerr.IOError("failed to open index database", err)
	}

	return &Store{db: db, lock: fl, path: dir}, nil
}

// TryOpen is like Open but returns (nil, false, nil) instead of blocking
// when another process already holds the write lock.
func TryOpen(dir string) (*Store, bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, ferrexerr.IOError("failed to create index directory", err)
	}

	lockPath := filepath.Join(dir, lockFileName)
	fl := flock.New(lockPath)
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, false, ferrexerr.IOError("failed to acquire index lock", err)
	}
	if !acquired {
		return nil, false, nil
	}

	dbPath := filepath.Join(dir, "data.db")
	db, err := bbolt.Open(dbPath, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		_ = fl.Unlock()
		return nil, false, ferrexerr.IOError("failed to open index database", err)
	}

	return &Store{db: db, lock: fl, path: dir}, true, nil
}

// Close closes the underlying database and releases the write lock.
func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Unlock()
	if dbErr != nil {
		return ferrexerr.IOError("failed to close index database", dbErr)
	}
	if lockErr != nil {
		return ferrexerr.IOError("failed to release index lock", lockErr)
	}
	return nil
}

// Path returns the index directory this Store was opened on.
func (s *Store) Path() string { return s.path }

// View runs fn within a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{tx: btx})
	})
}

// Update runs fn within a read-write transaction, committing on success and
// rolling back on error or panic.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{tx: btx})
	})
}
