package host

// Container holds the elements of one hash variable
//
// Two variants exist: the in-memory MemContainer every ordinary variable
// uses, and the database-backed container the binding layer installs on
// tied variables. The interface is what lets the rest of the interpreter
// treat both the same way
type Container interface {
	// Lookup resolves key to its cell
	// Whether a missing key reports absence or materializes a fresh cell
	// is up to the variant, database-backed containers never miss
	Lookup(key string) (*Cell, bool)

	// Fetch returns the cell for key, creating one when missing
	Fetch(key string) *Cell

	// Remove destroys the cell for key, running its unset hook first
	// Reports whether a cell existed
	Remove(key string) bool

	// Enumerate visits cells until visit returns false
	// Order is unspecified
	Enumerate(visit func(*Cell) bool)

	// Replace substitutes the container's content with src's pairs
	// A nil src empties the container, replacing a container with itself
	// is a no-op
	Replace(src Container)

	// Teardown destroys every cell, running unset hooks, and leaves the
	// container empty
	Teardown()

	// Len returns the number of materialized cells
	Len() int

	// Snapshot returns a flat copy of the container's content
	Snapshot() map[string][]byte
}

// MemContainer is the host's default in-memory container
type MemContainer struct {
	cells map[string]*Cell // Keyed element cells
	ops   CellOps          // Hook set installed on newly created cells
}

// NewMemContainer creates an empty container with plain element behavior
func NewMemContainer() *MemContainer {
	return &MemContainer{
		cells: make(map[string]*Cell),
		ops:   StdCellOps{},
	}
}

// InstallCellOps swaps the hook set given to cells created from now on
// Existing cells keep the hooks they were created with
func (m *MemContainer) InstallCellOps(ops CellOps) {
	if ops == nil {
		ops = StdCellOps{}
	}
	m.ops = ops
}

// Lookup resolves key to its cell without creating one
func (m *MemContainer) Lookup(key string) (*Cell, bool) {
	c, ok := m.cells[key]
	return c, ok
}

// Fetch returns the cell for key, creating an empty one when missing
func (m *MemContainer) Fetch(key string) *Cell {
	if c, ok := m.cells[key]; ok {
		return c
	}
	c := NewCell(key, m.ops)
	m.cells[key] = c
	return c
}

// Remove destroys the cell for key, running its unset hook first
func (m *MemContainer) Remove(key string) bool {
	c, ok := m.cells[key]
	if !ok {
		return false
	}
	c.Unset()
	delete(m.cells, key)
	return true
}

// Enumerate visits every cell until visit returns false
func (m *MemContainer) Enumerate(visit func(*Cell) bool) {
	for _, c := range m.cells {
		if !visit(c) {
			return
		}
	}
}

// Replace substitutes the container's content with src's pairs
func (m *MemContainer) Replace(src Container) {
	if src == Container(m) {
		return
	}

	m.cells = make(map[string]*Cell)
	if src == nil {
		return
	}
	for key, value := range src.Snapshot() {
		m.Fetch(key).SetValue(value)
	}
}

// Teardown destroys every cell, running unset hooks
func (m *MemContainer) Teardown() {
	for _, c := range m.cells {
		c.Unset()
	}
	m.cells = make(map[string]*Cell)
}

// Reset drops every cell without running element hooks
// Used when the backend has already been emptied and per-cell teardown
// would only replay deletions against it
func (m *MemContainer) Reset() {
	m.cells = make(map[string]*Cell)
}

// Len returns the number of materialized cells
func (m *MemContainer) Len() int {
	return len(m.cells)
}

// Snapshot returns a flat copy of the container's content
func (m *MemContainer) Snapshot() map[string][]byte {
	out := make(map[string][]byte, len(m.cells))
	for key, c := range m.cells {
		out[key] = c.Value()
	}
	return out
}
