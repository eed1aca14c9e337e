// Package binding makes a database file behave as a live hash variable: it
// supplies the hook set, the container and the lifecycle operations that
// turn an engine handle plus an interpreter variable into one tied whole.
//
// # Overview
//
// A tie takes a variable name and a file path and leaves behind a variable
// whose elements are the file's keys. Reading an element reads the file,
// writing an element writes the file, enumerating the variable walks the
// file, and assigning a whole new content to the variable rewrites the
// file. Untying releases the file and the variable together.
//
// Three pieces cooperate:
//
//   - Binding, the registry entry holding the engine handle, its file
//     table slot and the mutation lock
//   - cellOps, the hook set synchronizing each element cell's cache with
//     the file
//   - Hash, the container giving the variable its file-backed behavior
//     for lookup, enumeration, bulk assignment and teardown
//
// # Architecture
//
//	┌─────────────────────────────────────────────┐
//	│              host.Table                     │
//	│       Var{FlagSpecial, Hash: ───┐           │
//	└─────────────────────────────────┼───────────┘
//	                                  ▼
//	┌─────────────────────────────────────────────┐
//	│                 Hash                        │
//	│  materialized cells   +   backend walks     │
//	└───────────────┬─────────────────┬───────────┘
//	                │ cells share     │
//	                ▼                 ▼
//	┌───────────────────────┐ ┌─────────────────────┐
//	│       cellOps         │ │      Binding        │
//	│ cache ⇄ file per cell │ │ handle, slot, lock  │
//	└───────────────────────┘ └──────────┬──────────┘
//	                                     ▼
//	                          ┌─────────────────────┐
//	                          │   engine.Handle     │
//	                          └─────────────────────┘
//
// # The Read Path
//
// Each cell carries a cached value and a freshness mark. A read through a
// fresh cell never touches the file. A read through a stale cell probes
// the file for the key:
//
//   - hit: fetch the value, cache it, mark the cell fresh, return it
//   - miss: return empty and leave the cell stale
//
// The miss case deliberately doesn't cache the absence. Every read of an
// absent key probes the file again, trading repeat queries for never
// having to invalidate a cached "not there".
//
// # The Write Path
//
// A write through a cell updates the cache first and unconditionally, then
// mirrors the change to the file: a value becomes a store, absence becomes
// a delete. File errors don't undo the cache update and aren't reported
// through the assignment, the session's view of the element simply keeps
// going, which is what makes writes to a read-only tie behave like writes
// to an ordinary variable that happen not to persist.
//
// # Container Behavior
//
// Hash keeps materialized cells in an ordinary in-memory container and
// adds the file-backed semantics on top:
//
// Lookup never misses. Any key might exist in the file, so lookup
// materializes a stale cell on first reference and lets the read path
// decide what it holds.
//
// Enumerate walks the file's keyspace, not the cell map, materializing a
// cell per visited key. The variable thus appears to contain exactly the
// file's keys, including ones never referenced before, while cells that
// exist only in memory stay out of the walk.
//
// Replace implements whole-variable assignment: snapshot the source, drain
// the file key by key, compact it, drop all cells, then write the new
// pairs straight through. The new content materializes lazily afterwards.
// Replacing a variable with itself is recognized and left alone.
//
// Teardown detaches the binding before destroying cells, so cell hooks
// running during destruction already see no backend.
//
// # Lifecycle
//
// Tie runs a fixed sequence: unset any existing variable under the name,
// open the file, register it in the file table, create the variable with
// the bound container. Failures unwind, an open error leaves the variable
// system untouched and a create error closes and deregisters the file, so
// there is no state in which the file is held without the variable or the
// variable exists without the file.
//
// Untie resolves the name, verifies the variable is one of ours and unsets
// it, which tears the container down and detaches the binding. A read-only
// tie refuses to go unless the caller forces writability first. Multiple
// names are processed independently, one failure doesn't stop the rest.
//
// # The Shared Entry
//
// All cells of one variable share a single Binding through their common
// hook set. Detach closes the handle, releases the file table slot and
// nils the handle reference exactly once, the entry itself stays alive for
// as long as anything points at it. A cell held across an untie therefore
// keeps working, its reads serve the cache, its writes update the cache,
// and nothing reaches the closed file.
//
// # Critical Sections
//
// The interpreter's control flow is single-threaded, but the multi-step
// file mutations, the drain loop, the compaction, the bulk store and the
// detach, run under the binding's lock so they can't interleave with each
// other regardless of what drives them.
//
// # Error Handling
//
// Lifecycle failures are sentinel errors wrapped with the offending name
// or path: ErrUnsupportedBackend, ErrNoFile, ErrCannotCreate,
// ErrCannotUntie, ErrNotTied, ErrDetached. Runtime element traffic never
// raises errors, see the write path above.
//
// # Usage
//
//	tbl := host.NewTable()
//	files := host.NewFileTable()
//
//	_, err := binding.Tie(tbl, files, binding.TieOptions{
//	    Name:    "prefs",
//	    Backend: binding.Backend,
//	    Path:    "/var/db/prefs.db",
//	})
//	if err != nil {
//	    log.Fatalf("tie: %v", err)
//	}
//
//	v, _ := tbl.Get("prefs")
//	c, _ := v.Hash.Lookup("theme")
//	c.SetValue([]byte("dark"))
//
//	if err := binding.Untie(tbl, false, "prefs"); err != nil {
//	    log.Printf("untie: %v", err)
//	}
//
// # See Also
//
// Related packages:
//   - internal/engine: the handle the binding drives
//   - internal/host: the variable system the binding plugs into
package binding
