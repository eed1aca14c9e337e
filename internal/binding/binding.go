package binding

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dreamware/tiekv/internal/engine"
	"github.com/dreamware/tiekv/internal/host"
)

// DB is the backend capability the binding layer consumes
// *engine.Handle implements it, tests substitute fakes
type DB interface {
	Exists(key []byte) (bool, error)
	Fetch(key []byte) ([]byte, bool, error)
	Store(key, value []byte, overwrite bool) error
	Delete(key []byte) error
	FirstKey() ([]byte, bool, error)
	NextKey(after []byte) ([]byte, bool, error)
	Count() (int, error)
	Sync() error
	Reorganize() error
	Stats() engine.Stats
	Close() error
	Path() string
	ReadOnly() bool
}

var _ DB = (*engine.Handle)(nil)

// Binding is the registry entry pairing one tied variable with its backend
//
// Every cell of the tied variable shares this one entry through the hook
// set it hands out, so the entry is the single place where "is there still
// a backend" is decided. Detach flips that answer for all holders at once,
// including cells a caller grabbed before the untie and kept.
type Binding struct {
	id    string          // Session-unique binding id
	mu    sync.Mutex      // Serializes multi-step backend mutations
	db    DB              // Backend handle, nil once detached
	files *host.FileTable // Interpreter file table holding the slot
	slot  int             // File table slot for the backend file
	path  string          // Backend file path, survives detach
	mode  string          // Open mode label, survives detach
	ops   host.CellOps    // Shared hook set handed to every cell
}

// newBinding wires a fresh registry entry around an open backend
func newBinding(db DB, files *host.FileTable, slot int) *Binding {
	mode := "read-write"
	if db.ReadOnly() {
		mode = "read-only"
	}
	b := &Binding{
		id:    uuid.NewString(),
		db:    db,
		files: files,
		slot:  slot,
		path:  db.Path(),
		mode:  mode,
	}
	b.ops = &cellOps{binding: b}
	return b
}

// ID returns the session-unique binding id
func (b *Binding) ID() string {
	return b.id
}

// DB returns the backend handle, nil once detached
func (b *Binding) DB() DB {
	return b.db
}

// Slot returns the file table slot registered for the backend file
func (b *Binding) Slot() int {
	return b.slot
}

// Path returns the backend file path
func (b *Binding) Path() string {
	return b.path
}

// Mode returns the open mode label
func (b *Binding) Mode() string {
	return b.mode
}

// Detached reports whether the backend has been released
func (b *Binding) Detached() bool {
	return b.db == nil
}

// Detach closes the backend and releases its file table slot
// The first call does the work, every later call is a no-op, so the entry
// is released exactly once no matter how many paths reach it
func (b *Binding) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return
	}
	if err := b.db.Close(); err != nil {
		log.Printf("Binding %s: closing %s: %v", b.id, b.path, err)
	}
	b.db = nil
	if b.files != nil {
		b.files.Release(b.slot)
	}
}

// Sync flushes the backend file to stable storage
func (b *Binding) Sync() error {
	db := b.db
	if db == nil {
		return ErrDetached
	}
	return db.Sync()
}

// critical runs fn while holding the binding's mutation lock
// Multi-step backend sequences run under it so a detach can't interleave
// with a half-done drain or bulk store
func (b *Binding) critical(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}
