package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/dreamware/tiekv/internal/engine"
	"github.com/dreamware/tiekv/internal/host"
)

// fakeDB is an in-memory backend that counts the traffic reaching it
type fakeDB struct {
	data        map[string][]byte
	readOnly    bool // Reject mutations like a reader handle
	failWrites  bool // Reject mutations regardless of mode
	closed      bool
	exists      int // Exists calls
	fetches     int // Fetch calls
	stores      int // Store attempts
	deletes     int // Delete attempts
	reorganizes int // Completed reorganize calls
	syncs       int // Sync calls
}

var _ DB = (*fakeDB)(nil)

// newFakeDB seeds a fake backend with string pairs
func newFakeDB(pairs map[string]string) *fakeDB {
	data := make(map[string][]byte)
	for k, v := range pairs {
		data[k] = []byte(v)
	}
	return &fakeDB{data: data}
}

func (f *fakeDB) Exists(key []byte) (bool, error) {
	if f.closed {
		return false, engine.ErrClosed
	}
	f.exists++
	_, ok := f.data[string(key)]
	return ok, nil
}

func (f *fakeDB) Fetch(key []byte) ([]byte, bool, error) {
	if f.closed {
		return nil, false, engine.ErrClosed
	}
	f.fetches++
	v, ok := f.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (f *fakeDB) Store(key, value []byte, overwrite bool) error {
	if f.closed {
		return engine.ErrClosed
	}
	f.stores++
	if f.readOnly || f.failWrites {
		return engine.ErrReadOnly
	}
	if !overwrite {
		if _, ok := f.data[string(key)]; ok {
			return engine.ErrExists
		}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	f.data[string(key)] = stored
	return nil
}

func (f *fakeDB) Delete(key []byte) error {
	if f.closed {
		return engine.ErrClosed
	}
	f.deletes++
	if f.readOnly || f.failWrites {
		return engine.ErrReadOnly
	}
	if _, ok := f.data[string(key)]; !ok {
		return engine.ErrNotFound
	}
	delete(f.data, string(key))
	return nil
}

func (f *fakeDB) sortedKeys() []string {
	keys := maps.Keys(f.data)
	slices.Sort(keys)
	return keys
}

func (f *fakeDB) FirstKey() ([]byte, bool, error) {
	if f.closed {
		return nil, false, engine.ErrClosed
	}
	keys := f.sortedKeys()
	if len(keys) == 0 {
		return nil, false, nil
	}
	return []byte(keys[0]), true, nil
}

func (f *fakeDB) NextKey(after []byte) ([]byte, bool, error) {
	if f.closed {
		return nil, false, engine.ErrClosed
	}
	for _, k := range f.sortedKeys() {
		if k > string(after) {
			return []byte(k), true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeDB) Count() (int, error) {
	if f.closed {
		return 0, engine.ErrClosed
	}
	return len(f.data), nil
}

func (f *fakeDB) Sync() error {
	if f.closed {
		return engine.ErrClosed
	}
	f.syncs++
	return nil
}

func (f *fakeDB) Reorganize() error {
	if f.closed {
		return engine.ErrClosed
	}
	if f.readOnly || f.failWrites {
		return engine.ErrReadOnly
	}
	f.reorganizes++
	return nil
}

func (f *fakeDB) Stats() engine.Stats {
	return engine.Stats{Keys: len(f.data)}
}

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDB) Path() string {
	return "fake.db"
}

func (f *fakeDB) ReadOnly() bool {
	return f.readOnly
}

// newTestBinding wires a binding and a file table around a backend
func newTestBinding(db DB) (*Binding, *host.FileTable) {
	files := host.NewFileTable()
	slot := files.Register(host.FileInfo{Path: db.Path(), Mode: "read-write", Owner: "test"})
	return newBinding(db, files, slot), files
}

// TestCellOpsRead verifies the read path of the element hooks.
// Fresh cells answer locally, stale cells consult the backend, and a miss
// leaves the cell stale so the next read asks again.
func TestCellOpsRead(t *testing.T) {
	t.Run("hit fills the cache and marks the cell fresh", func(t *testing.T) {
		fake := newFakeDB(map[string]string{"k": "v"})
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		assert.Equal(t, []byte("v"), c.Value())
		assert.True(t, c.UpToDate(), "Hit should mark the cell fresh")
		assert.Equal(t, 1, fake.exists)
		assert.Equal(t, 1, fake.fetches)

		// The second read is served from the cache
		assert.Equal(t, []byte("v"), c.Value())
		assert.Equal(t, 1, fake.exists, "Fresh cell should not probe again")
		assert.Equal(t, 1, fake.fetches)
	})

	t.Run("miss yields empty and leaves the cell stale", func(t *testing.T) {
		fake := newFakeDB(nil)
		b, _ := newTestBinding(fake)
		c := host.NewCell("ghost", b.ops)

		assert.Equal(t, []byte{}, c.Value())
		assert.False(t, c.UpToDate(), "Miss must not mark the cell fresh")
		assert.Equal(t, 1, fake.exists)
		assert.Equal(t, 0, fake.fetches, "Miss should not fetch")
	})

	t.Run("every read of an absent key probes the backend again", func(t *testing.T) {
		fake := newFakeDB(nil)
		b, _ := newTestBinding(fake)
		c := host.NewCell("ghost", b.ops)

		for i := 0; i < 3; i++ {
			assert.Equal(t, []byte{}, c.Value())
		}
		assert.Equal(t, 3, fake.exists, "Each read of an absent key probes anew")
	})

	t.Run("key appearing later is picked up", func(t *testing.T) {
		fake := newFakeDB(nil)
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		assert.Equal(t, []byte{}, c.Value())

		// The key shows up in the backend after the first miss
		fake.data["k"] = []byte("late")
		assert.Equal(t, []byte("late"), c.Value())
		assert.True(t, c.UpToDate())
	})

	t.Run("empty backend value reads as present and empty", func(t *testing.T) {
		fake := newFakeDB(map[string]string{"k": ""})
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		assert.Equal(t, []byte{}, c.Value())
		assert.True(t, c.UpToDate(), "Present empty value should still mark fresh")
	})

	t.Run("detached read serves the cache of a fresh cell", func(t *testing.T) {
		fake := newFakeDB(map[string]string{"k": "v"})
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		// Materialize and cache the value, then lose the backend
		require.Equal(t, []byte("v"), c.Value())
		b.Detach()

		probes := fake.exists
		assert.Equal(t, []byte("v"), c.Value())
		assert.Equal(t, probes, fake.exists, "Detached read must not touch the backend")
	})

	t.Run("detached stale read without cache yields empty", func(t *testing.T) {
		fake := newFakeDB(map[string]string{"k": "v"})
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		b.Detach()
		assert.Equal(t, []byte{}, c.Value())
	})
}

// TestCellOpsWrite verifies the write path of the element hooks.
// The cache is updated first and unconditionally, the backend mirror is
// best-effort and its failures never surface through the assignment.
func TestCellOpsWrite(t *testing.T) {
	t.Run("set lands in cache and backend", func(t *testing.T) {
		fake := newFakeDB(nil)
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		c.SetValue([]byte("v"))

		assert.True(t, c.UpToDate())
		cached, ok := c.Cached()
		require.True(t, ok)
		assert.Equal(t, []byte("v"), cached)
		assert.Equal(t, []byte("v"), fake.data["k"])
		assert.Equal(t, 1, fake.stores)
	})

	t.Run("set replaces the prior cached value wholesale", func(t *testing.T) {
		fake := newFakeDB(nil)
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		c.SetValue([]byte("first"))
		c.SetValue([]byte("2nd"))

		assert.Equal(t, []byte("2nd"), c.Value())
		assert.Equal(t, []byte("2nd"), fake.data["k"])
	})

	t.Run("set nil deletes on both sides", func(t *testing.T) {
		fake := newFakeDB(map[string]string{"k": "v"})
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		c.SetValue(nil)

		assert.False(t, c.UpToDate(), "Unset element must go stale")
		_, ok := c.Cached()
		assert.False(t, ok, "Unset element must drop its cache")
		assert.NotContains(t, fake.data, "k")
		assert.Equal(t, 1, fake.deletes)
	})

	t.Run("backend failure leaves the cached value standing", func(t *testing.T) {
		fake := newFakeDB(nil)
		fake.failWrites = true
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		c.SetValue([]byte("v"))

		assert.Equal(t, []byte("v"), c.Value(), "Cache wins even when the mirror fails")
		assert.NotContains(t, fake.data, "k")
		assert.Equal(t, 1, fake.stores, "The mirror write must still be attempted")
	})

	t.Run("detached write is cache-only", func(t *testing.T) {
		fake := newFakeDB(nil)
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		b.Detach()
		c.SetValue([]byte("v"))

		assert.Equal(t, []byte("v"), c.Value())
		assert.Equal(t, 0, fake.stores, "Detached write must not reach the backend")
	})

	t.Run("unset goes through the same path as set nil", func(t *testing.T) {
		fake := newFakeDB(map[string]string{"k": "v"})
		b, _ := newTestBinding(fake)
		c := host.NewCell("k", b.ops)

		c.Unset()

		assert.NotContains(t, fake.data, "k")
		assert.Equal(t, 1, fake.deletes)
		assert.False(t, c.UpToDate())
	})

	t.Run("deleting an absent key is quietly absorbed", func(t *testing.T) {
		fake := newFakeDB(nil)
		b, _ := newTestBinding(fake)
		c := host.NewCell("ghost", b.ops)

		c.SetValue(nil)

		assert.Equal(t, 1, fake.deletes)
		assert.Equal(t, []byte{}, c.Value())
	})
}
