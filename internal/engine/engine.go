package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when a key doesn't exist in the database
var ErrNotFound = errors.New("key not found")

// ErrExists is returned by Store when overwriting is disabled and the key is
// already present
var ErrExists = errors.New("key already exists")

// ErrReadOnly is returned when a mutating operation reaches a read-only handle
var ErrReadOnly = errors.New("database is read-only")

// ErrClosed is returned when an operation reaches a closed handle
var ErrClosed = errors.New("database handle is closed")

// lockTimeout bounds the wait for the engine's file lock so that a second
// opener fails instead of blocking forever
const lockTimeout = 1 * time.Second

// dataBucket is the single bucket holding all key-value pairs of a database
// file
var dataBucket = []byte("data")

// Mode selects how a database file is opened
type Mode int

const (
	// Writer opens the file read-write and creates it if absent
	Writer Mode = iota
	// Reader opens the file read-only and fails if it is absent
	Reader
)

// String returns a human-readable mode name
func (m Mode) String() string {
	if m == Reader {
		return "read-only"
	}
	return "read-write"
}

// Handle wraps one open database file
// All access to the file goes through per-operation transactions, so a
// handle never holds a transaction open between calls
type Handle struct {
	db   *bbolt.DB // Underlying engine, nil once closed
	path string    // Database file path
	mode Mode      // Open mode, fixed for the handle's lifetime
	ops  opCounts  // Operation counters
}

// opCounts tracks operation counts for a handle
type opCounts struct {
	fetches uint64
	stores  uint64
	deletes uint64
}

// Stats contains operation counts and the current key count for a handle
type Stats struct {
	Fetches uint64 // Number of fetch operations
	Stores  uint64 // Number of store operations
	Deletes uint64 // Number of delete operations
	Keys    int    // Number of keys currently in the file
}

// Open opens the database file at path in the given mode
//
// Writer mode takes an exclusive file lock and creates the file when it
// doesn't exist yet. Reader mode takes a shared lock and fails when the file
// is missing, so several readers may share a file that no writer holds.
// A lock held elsewhere surfaces as an open error after lockTimeout rather
// than blocking indefinitely.
func Open(path string, mode Mode) (*Handle, error) {
	opts := &bbolt.Options{Timeout: lockTimeout}
	if mode == Reader {
		opts.ReadOnly = true
	}

	db, err := bbolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if mode == Writer {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(dataBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare %s: %w", path, err)
		}
	}

	return &Handle{db: db, path: path, mode: mode}, nil
}

// Close releases the handle and its file lock
// Closing an already closed handle is a no-op
func (h *Handle) Close() error {
	if h.db == nil {
		return nil
	}

	err := h.db.Close()
	h.db = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", h.path, err)
	}
	return nil
}

// Path returns the database file path
func (h *Handle) Path() string {
	return h.path
}

// Mode returns the mode the handle was opened with
func (h *Handle) Mode() Mode {
	return h.mode
}

// ReadOnly reports whether the handle rejects mutations
func (h *Handle) ReadOnly() bool {
	return h.mode == Reader
}

// Exists reports whether key is present without reading its value
func (h *Handle) Exists(key []byte) (bool, error) {
	if h.db == nil {
		return false, ErrClosed
	}

	var found bool
	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return nil
		}
		_, found = seekExact(b, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", h.path, err)
	}
	return found, nil
}

// Fetch retrieves the value stored under key
// The second return distinguishes a missing key from a present key holding
// an empty value
func (h *Handle) Fetch(key []byte) ([]byte, bool, error) {
	if h.db == nil {
		return nil, false, ErrClosed
	}
	atomic.AddUint64(&h.ops.fetches, 1)

	var (
		value []byte
		found bool
	)
	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return nil
		}
		v, ok := seekExact(b, key)
		if !ok {
			return nil
		}
		found = true
		// Copy the value out before the transaction ends, the slice
		// aliases the mapped file
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: %w", h.path, err)
	}
	return value, found, nil
}

// Store writes value under key
// With overwrite false an existing key is left untouched and ErrExists is
// returned
func (h *Handle) Store(key, value []byte, overwrite bool) error {
	if h.db == nil {
		return ErrClosed
	}
	if h.mode == Reader {
		return ErrReadOnly
	}
	atomic.AddUint64(&h.ops.stores, 1)

	err := h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if !overwrite {
			if _, ok := seekExact(b, key); ok {
				return ErrExists
			}
		}
		return b.Put(key, value)
	})
	if err != nil {
		if errors.Is(err, ErrExists) {
			return ErrExists
		}
		return fmt.Errorf("store %s: %w", h.path, err)
	}
	return nil
}

// Delete removes key from the database
// Returns ErrNotFound if the key isn't present
func (h *Handle) Delete(key []byte) error {
	if h.db == nil {
		return ErrClosed
	}
	if h.mode == Reader {
		return ErrReadOnly
	}
	atomic.AddUint64(&h.ops.deletes, 1)

	err := h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if _, ok := seekExact(b, key); !ok {
			return ErrNotFound
		}
		return b.Delete(key)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", h.path, err)
	}
	return nil
}

// FirstKey returns the first key in the database's iteration order
// The second return is false when the database is empty
func (h *Handle) FirstKey() ([]byte, bool, error) {
	if h.db == nil {
		return nil, false, ErrClosed
	}

	var (
		key   []byte
		found bool
	)
	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return nil
		}
		k, _ := b.Cursor().First()
		if k == nil {
			return nil
		}
		found = true
		key = make([]byte, len(k))
		copy(key, k)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("first key %s: %w", h.path, err)
	}
	return key, found, nil
}

// NextKey returns the key following after in the database's iteration order
// The second return is false once the keyspace is exhausted
// Deleting the current key between calls doesn't disturb the walk because
// the cursor is re-seeked on every call
func (h *Handle) NextKey(after []byte) ([]byte, bool, error) {
	if h.db == nil {
		return nil, false, ErrClosed
	}

	var (
		key   []byte
		found bool
	)
	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		k, _ := c.Seek(after)
		if k != nil && bytes.Equal(k, after) {
			k, _ = c.Next()
		}
		if k == nil {
			return nil
		}
		found = true
		key = make([]byte, len(k))
		copy(key, k)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("next key %s: %w", h.path, err)
	}
	return key, found, nil
}

// Count returns the number of keys in the database
func (h *Handle) Count() (int, error) {
	if h.db == nil {
		return 0, ErrClosed
	}

	var n int
	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", h.path, err)
	}
	return n, nil
}

// Sync flushes the database file to stable storage
// Read-only handles have nothing to flush, so Sync is a no-op for them
func (h *Handle) Sync() error {
	if h.db == nil {
		return ErrClosed
	}
	if h.mode == Reader {
		return nil
	}

	if err := h.db.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", h.path, err)
	}
	return nil
}

// Reorganize compacts the database file in place, reclaiming space freed by
// deletions
//
// The content is copied into a sibling file which is then renamed over the
// original, and the handle reopens on top of the result. The key-value
// content is unchanged. If the swap fails the handle falls back to the
// original file.
func (h *Handle) Reorganize() error {
	if h.db == nil {
		return ErrClosed
	}
	if h.mode == Reader {
		return ErrReadOnly
	}

	tmp := h.path + ".compact"
	// A remnant from an interrupted compaction must not feed stale keys
	// into this one
	os.Remove(tmp)
	dst, err := bbolt.Open(tmp, 0o600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("reorganize %s: %w", h.path, err)
	}
	if err := bbolt.Compact(dst, h.db, 0); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("reorganize %s: %w", h.path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("reorganize %s: %w", h.path, err)
	}

	// Swap the compacted file in under the same path, then reopen
	if err := h.db.Close(); err != nil {
		h.db = nil
		os.Remove(tmp)
		return fmt.Errorf("reorganize %s: %w", h.path, err)
	}
	h.db = nil
	if err := os.Rename(tmp, h.path); err != nil {
		os.Remove(tmp)
		return h.reopen(fmt.Errorf("reorganize %s: %w", h.path, err))
	}
	return h.reopen(nil)
}

// reopen reattaches the handle to its file after a compaction swap
// A pending error from the swap wins over a reopen error
func (h *Handle) reopen(pending error) error {
	db, err := bbolt.Open(h.path, 0o600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		if pending != nil {
			return pending
		}
		return fmt.Errorf("reopen %s: %w", h.path, err)
	}
	h.db = db
	return pending
}

// Stats returns operation counts and the current key count
func (h *Handle) Stats() Stats {
	s := Stats{
		Fetches: atomic.LoadUint64(&h.ops.fetches),
		Stores:  atomic.LoadUint64(&h.ops.stores),
		Deletes: atomic.LoadUint64(&h.ops.deletes),
	}
	if n, err := h.Count(); err == nil {
		s.Keys = n
	}
	return s
}

// seekExact positions a cursor on key and reports an exact match
// A plain bucket Get can't tell a missing key from a present key holding an
// empty value, the cursor can
func seekExact(b *bbolt.Bucket, key []byte) ([]byte, bool) {
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}
