package host

// Flag is a bitset of variable attributes
type Flag uint8

const (
	// FlagSpecial marks a variable whose container intercepts access
	FlagSpecial Flag = 1 << iota
	// FlagReadOnly blocks unsetting and whole-variable assignment
	FlagReadOnly
	// FlagRemovable marks a variable that generic commands may unset
	FlagRemovable
)

// Has reports whether all bits of want are set
func (f Flag) Has(want Flag) bool {
	return f&want == want
}

// CellOps is the hook set intercepting element access
// Every cell carries one, and cells of the same container share a single
// instance, so swapping state inside the shared instance changes the
// behavior of every element at once
type CellOps interface {
	// Get produces the element's current value
	Get(c *Cell) []byte

	// Set installs a new value, nil means the element becomes absent
	Set(c *Cell, value []byte)

	// Unset discards the element's value
	Unset(c *Cell)
}

// StdCellOps implements plain in-memory element behavior
// Values live in the cell's cache and nowhere else
type StdCellOps struct{}

// Get returns the cached value, or an empty value when nothing is cached
func (StdCellOps) Get(c *Cell) []byte {
	if value, ok := c.Cached(); ok {
		return value
	}
	return []byte{}
}

// Set replaces the cached value, nil clears it
func (StdCellOps) Set(c *Cell, value []byte) {
	if value == nil {
		c.ClearCached()
		return
	}
	c.StoreCached(value)
}

// Unset discards the cached value
func (StdCellOps) Unset(c *Cell) {
	c.ClearCached()
}

// Cell is one element of a hash variable
//
// The cell owns a cached copy of its value plus a freshness mark, and all
// access goes through its hook set. The cache and the mark are what the
// hooks of a database-backed container keep in step with the file on disk:
// a fresh cell answers reads locally, a stale one asks the backend first.
type Cell struct {
	key   string  // Element key, fixed for the cell's lifetime
	value []byte  // Owned cached value, nil when nothing is cached
	fresh bool    // Whether the cache may answer reads directly
	ops   CellOps // Hook set intercepting access
}

// NewCell creates a cell for key with the given hook set
// A nil hook set falls back to plain in-memory behavior
func NewCell(key string, ops CellOps) *Cell {
	if ops == nil {
		ops = StdCellOps{}
	}
	return &Cell{key: key, ops: ops}
}

// Key returns the element key
func (c *Cell) Key() string {
	return c.key
}

// Value reads the element through its hook set
// The result is never nil, an absent element reads as empty
func (c *Cell) Value() []byte {
	return c.ops.Get(c)
}

// SetValue writes the element through its hook set
// Passing nil makes the element absent rather than empty
func (c *Cell) SetValue(value []byte) {
	c.ops.Set(c, value)
}

// Unset discards the element through its hook set
func (c *Cell) Unset() {
	c.ops.Unset(c)
}

// Cached returns a copy of the cached value and whether one is present
func (c *Cell) Cached() ([]byte, bool) {
	if c.value == nil {
		return nil, false
	}

	// Return a copy to prevent external modification
	value := make([]byte, len(c.value))
	copy(value, c.value)
	return value, true
}

// UpToDate reports whether the cache may answer reads directly
func (c *Cell) UpToDate() bool {
	return c.fresh
}

// StoreCached replaces the cached value wholesale and marks the cell fresh
// The cache is always swapped as a unit, never patched in place
func (c *Cell) StoreCached(value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)
	c.value = stored
	c.fresh = true
}

// ClearCached drops the cached value and marks the cell stale
func (c *Cell) ClearCached() {
	c.value = nil
	c.fresh = false
}
