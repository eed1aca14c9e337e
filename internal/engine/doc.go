// Package engine wraps a bbolt database file behind the narrow key-value
// contract the rest of tiekv is written against: open, probe, fetch, store,
// delete, iterate, compact, close.
//
// # Overview
//
// The engine package is the only place in tiekv that talks to bbolt. Every
// other package sees a Handle, which behaves like a classic dbm-style file:
// a flat keyspace of byte keys and byte values inside a single file on disk,
// opened either for writing or for reading.
//
// # Architecture
//
// A Handle sits between the binding layer and the on-disk file:
//
//	┌─────────────────────────────────────┐
//	│          Binding Layer              │
//	│   (cell sync, container hooks)      │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│              Handle                 │
//	│  Exists / Fetch / Store / Delete    │
//	│  FirstKey / NextKey / Reorganize    │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│            bbolt.DB                 │
//	│   single file, single "data"        │
//	│   bucket, file-level locking        │
//	└─────────────────────────────────────┘
//
// Each operation runs in its own bbolt transaction. The handle never keeps a
// transaction open between calls, so callers are free to interleave reads,
// writes and iteration without tripping over transaction lifetimes.
//
// # Open Modes and Locking
//
// A file is opened in one of two modes:
//
// Writer:
//   - Creates the file when it doesn't exist
//   - Takes an exclusive file lock
//   - All operations available
//
// Reader:
//   - Fails when the file doesn't exist
//   - Takes a shared file lock
//   - Mutations rejected with ErrReadOnly
//
// The locks give the usual single-writer-or-many-readers discipline across
// processes: one writer excludes everyone else, readers coexist with each
// other. A conflicting open fails after a short timeout instead of blocking
// the caller indefinitely.
//
// # Iteration
//
// FirstKey and NextKey expose cursor-style iteration without a live cursor:
// NextKey re-seeks on every call, so the caller may delete the key it just
// visited and still continue the walk. Keys come back in bbolt's sorted
// order. Callers that only ever take FirstKey while deleting drain the file
// one key at a time, which is exactly how bulk replacement empties a
// database.
//
// # Durability
//
// The underlying bbolt database syncs on every committed transaction, so a
// successful Store or Delete is on disk when the call returns. Sync is still
// exposed for callers that want an explicit flush point, and Reorganize
// rewrites the file compactly after heavy deletion, the moral equivalent of
// a dbm reorganize.
//
// # Error Handling
//
// The package defines four sentinel errors:
//
// ErrNotFound: key doesn't exist
//   - Returned by Delete
//   - Fetch reports absence through its bool return instead
//
// ErrExists: key already present
//   - Returned by Store when overwrite is false
//
// ErrReadOnly: mutation on a Reader handle
//   - Returned by Store, Delete and Reorganize
//
// ErrClosed: operation on a closed handle
//   - Returned by everything once Close has run
//
// All other failures are wrapped with the file path and satisfy errors.Is
// against the underlying cause.
//
// # Usage
//
//	h, err := engine.Open("/var/db/sample.db", engine.Writer)
//	if err != nil {
//	    log.Fatalf("open: %v", err)
//	}
//	defer h.Close()
//
//	if err := h.Store([]byte("k"), []byte("v"), true); err != nil {
//	    log.Printf("store: %v", err)
//	}
//
//	v, ok, err := h.Fetch([]byte("k"))
//	if err == nil && ok {
//	    fmt.Printf("k = %s\n", v)
//	}
//
//	for k, ok, err := h.FirstKey(); err == nil && ok; k, ok, err = h.NextKey(k) {
//	    fmt.Printf("key: %s\n", k)
//	}
//
// # See Also
//
// Related packages:
//   - internal/binding: attaches handles to live variables
//   - internal/host: the variable system the handles feed
package engine
