package binding

import "github.com/dreamware/tiekv/internal/host"

// Hash is the database-backed container installed on tied variables
//
// It stores materialized cells in an ordinary in-memory container and
// consults the backend for everything that hasn't been referenced yet, so
// the variable behaves as if it already held every key in the file while
// only paying for the elements actually touched.
type Hash struct {
	mem     *host.MemContainer // Materialized element cells
	binding *Binding           // Registry entry shared with every cell
}

var _ host.Container = (*Hash)(nil)

// newHash builds the container for a fresh binding
func newHash(b *Binding) *Hash {
	mem := host.NewMemContainer()
	mem.InstallCellOps(b.ops)
	return &Hash{mem: mem, binding: b}
}

// Binding returns the registry entry backing this container
func (h *Hash) Binding() *Binding {
	return h.binding
}

// Lookup materializes the cell for key on first reference
//
// Any key may exist in the backend, so a lookup can never report absence
// outright. The cell starts stale and without a cached value, the first
// read through it decides what it holds.
func (h *Hash) Lookup(key string) (*host.Cell, bool) {
	return h.mem.Fetch(key), true
}

// Fetch returns the cell for key, materializing it when missing
func (h *Hash) Fetch(key string) *host.Cell {
	return h.mem.Fetch(key)
}

// Remove destroys the element under key on both sides
// The key needn't be materialized yet, the cell is created on the spot and
// its unset hook carries the delete through to the backend
func (h *Hash) Remove(key string) bool {
	h.mem.Fetch(key)
	return h.mem.Remove(key)
}

// Enumerate walks the backend keyspace, materializing cells as it goes
//
// Cells that exist only in memory and not in the file, for example reads
// of keys that were never present, are not part of the walk. With the
// backend gone the walk falls back to whatever was materialized.
func (h *Hash) Enumerate(visit func(*host.Cell) bool) {
	db := h.binding.DB()
	if db == nil {
		h.mem.Enumerate(visit)
		return
	}

	key, ok, err := db.FirstKey()
	for err == nil && ok {
		if !visit(h.mem.Fetch(string(key))) {
			return
		}
		key, ok, err = db.NextKey(key)
	}
}

// Replace substitutes the backend's whole content with src's pairs
//
// The backend is drained one key at a time and compacted, then the new
// pairs are written straight through. No cells survive, elements of the
// new content materialize lazily on their next reference. Replacing the
// container with itself is a no-op, and with no backend attached there is
// nothing to replace into.
func (h *Hash) Replace(src host.Container) {
	if src == host.Container(h) {
		return
	}
	db := h.binding.DB()
	if db == nil {
		return
	}

	// Capture the source before the drain, src may be another variable
	// reading through a backend of its own
	var pairs map[string][]byte
	if src != nil {
		pairs = src.Snapshot()
	}

	for {
		var (
			key []byte
			ok  bool
			err error
		)
		h.binding.critical(func() {
			key, ok, err = db.FirstKey()
			if err != nil || !ok {
				return
			}
			err = db.Delete(key)
		})
		if err != nil || !ok {
			break
		}
	}
	h.binding.critical(func() {
		_ = db.Reorganize()
	})

	// The old cells' keys are gone from the file, drop them wholesale
	// rather than replaying deletes one by one
	h.mem.Reset()

	for key, value := range pairs {
		k, v := []byte(key), value
		h.binding.critical(func() {
			_ = db.Store(k, v, true)
		})
	}
}

// Teardown detaches the backend and destroys the container's elements
//
// The backend goes first: by the time cells are destroyed their hooks
// already see no backend, so teardown never replays deletes against the
// file, and any cell still held by a caller degrades to cache-only
// behavior instead of reaching a closed handle.
func (h *Hash) Teardown() {
	h.binding.Detach()
	h.mem.InstallCellOps(host.StdCellOps{})
	h.mem.Teardown()
}

// Len returns the number of materialized cells
// Keys that only exist in the backend don't count until referenced
func (h *Hash) Len() int {
	return h.mem.Len()
}

// Snapshot returns the backend's view of the content
func (h *Hash) Snapshot() map[string][]byte {
	out := make(map[string][]byte)
	h.Enumerate(func(c *host.Cell) bool {
		out[c.Key()] = c.Value()
		return true
	})
	return out
}
