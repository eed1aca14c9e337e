// Package host implements the interpreter-side variable system that tied
// databases plug into: named hash variables, their element cells, the hook
// sets that intercept element access, and the table of open backend files.
//
// # Overview
//
// The host package knows nothing about databases. It defines the shapes the
// rest of tiekv agrees on:
//
//   - Table maps names to variables
//   - Var couples a name, attribute flags and a Container
//   - Container holds the element cells of one variable
//   - Cell is one element, a cached value plus a freshness mark
//   - CellOps is the hook set a cell routes its reads and writes through
//   - FileTable tracks backend files the way a shell tracks descriptors
//
// The binding layer builds its database-backed behavior entirely out of
// these pieces by supplying its own CellOps and its own Container, which is
// the point: a tied variable is an ordinary variable whose hooks happen to
// talk to a file.
//
// # Architecture
//
//	┌──────────────────────────────────────────┐
//	│                 Table                    │
//	│        name → Var{Flags, Hash}           │
//	└──────────────────────────────────────────┘
//	                    │
//	                    ▼
//	┌──────────────────────────────────────────┐
//	│               Container                  │
//	│   MemContainer     or    bound variant   │
//	└──────────────────────────────────────────┘
//	                    │
//	                    ▼
//	┌──────────────────────────────────────────┐
//	│          Cell ──routes──▶ CellOps        │
//	│   cache + fresh mark      Get/Set/Unset  │
//	└──────────────────────────────────────────┘
//
// # Cells and Hook Sets
//
// A cell never answers access itself. Value, SetValue and Unset delegate to
// the cell's CellOps, and the hook set decides what the cache means:
//
// StdCellOps (plain variables):
//   - Get returns the cache, or empty when nothing is cached
//   - Set replaces the cache
//   - Unset clears the cache
//
// Bound hook sets (tied variables) treat the cache as a staleness-tracked
// mirror of a database entry: a fresh cell answers locally, a stale one
// consults the backend first, and writes go to the cache and then through
// to the backend. The cell's StoreCached and ClearCached are the only ways
// hooks touch the cache, and both swap the value wholesale.
//
// All cells of one container share a single CellOps instance. Swapping
// state inside that shared instance, for example detaching a database
// handle, changes the behavior of every element at once, including cells a
// caller grabbed earlier and held on to.
//
// # Containers
//
// MemContainer is the default variant: a map of cells, created on Fetch,
// destroyed on Remove or Teardown. The interface leaves one deliberate
// degree of freedom to variants: Lookup on a missing key may either report
// absence (plain) or materialize a cell on the spot (database-backed, where
// any key may exist on disk and only a backend query can tell).
//
// # Variable Table
//
// Table.Unset is where variable destruction is policed: read-only variables
// refuse, everything else is torn down cell by cell with hooks running, so
// bound containers get the chance to detach from their files. The table is
// owned by the interpreter's single control thread and takes no locks.
//
// # File Table
//
// FileTable is the descriptor-table analog. Each open backend file occupies
// a slot with its path, mode and owning variable, so the interpreter can
// list what it holds open and released slots can be audited. Slot numbers
// are never reused within a session.
//
// # Usage
//
//	tbl := host.NewTable()
//	v, _ := tbl.Create("color", host.FlagRemovable, nil)
//	v.Hash.Fetch("sky").SetValue([]byte("blue"))
//
//	if c, ok := v.Hash.Lookup("sky"); ok {
//	    fmt.Printf("sky = %s\n", c.Value())
//	}
//
//	_ = tbl.Unset("color")
//
// # See Also
//
// Related packages:
//   - internal/binding: the database-backed CellOps and Container
//   - internal/engine: the file backend those hooks talk to
package host
