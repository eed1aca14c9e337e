package binding

import (
	"errors"
	"fmt"

	"github.com/dreamware/tiekv/internal/engine"
	"github.com/dreamware/tiekv/internal/host"
)

// Backend is the backend tag ties must name
// A tag is required so scripts written against one backend fail loudly
// instead of silently landing on another
const Backend = "db/bolt"

// ErrUnsupportedBackend is returned when a tie names a backend tag this
// module doesn't provide
var ErrUnsupportedBackend = errors.New("unsupported backend type")

// ErrNoFile is returned when a tie names no database file
var ErrNoFile = errors.New("no database file given")

// ErrCannotCreate is returned when the variable can't be created after the
// backend opened
var ErrCannotCreate = errors.New("cannot create the requested parameter")

// ErrCannotUntie is returned when an untie can't resolve or release its
// variable
var ErrCannotUntie = errors.New("cannot untie")

// ErrNotTied is returned when an untie reaches a variable this module
// didn't bind
var ErrNotTied = errors.New("not a tied db/bolt hash")

// ErrDetached is returned by operations that need a backend after the
// binding released it
var ErrDetached = errors.New("binding is detached")

// TieOptions configures one tie
type TieOptions struct {
	Name     string // Variable name to bind
	Backend  string // Backend tag, must be Backend
	Path     string // Database file path
	ReadOnly bool   // Open read-only and mark the variable read-only
}

// Tie binds a variable to a database file
//
// The sequence is fixed: an existing variable under the name is unset
// first, then the file is opened and registered, then the variable is
// created with the bound container. A failed open leaves the variable
// system untouched, a failed create closes the file and releases its slot
// again, so no half-tied state survives either way.
//
// With ReadOnly set the file is opened with a shared lock and the variable
// refuses unsetting and whole-variable assignment; element writes still
// land in caches but never reach the file.
func Tie(tbl *host.Table, files *host.FileTable, opts TieOptions) (*Binding, error) {
	if opts.Backend != Backend {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, opts.Backend)
	}
	if opts.Path == "" {
		return nil, ErrNoFile
	}

	// A tie replaces rather than shadows, so a live variable under this
	// name goes away before the file is touched
	if _, ok := tbl.Get(opts.Name); ok {
		if err := tbl.Unset(opts.Name); err != nil {
			return nil, fmt.Errorf("cannot unset existing parameter %s: %w", opts.Name, err)
		}
	}

	mode := engine.Writer
	if opts.ReadOnly {
		mode = engine.Reader
	}
	h, err := engine.Open(opts.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("error opening database file %s: %w", opts.Path, err)
	}

	slot := files.Register(host.FileInfo{
		Path:  opts.Path,
		Mode:  mode.String(),
		Owner: opts.Name,
	})
	b := newBinding(h, files, slot)

	flags := host.FlagSpecial | host.FlagRemovable
	if opts.ReadOnly {
		flags |= host.FlagReadOnly
	}
	if _, err := tbl.Create(opts.Name, flags, newHash(b)); err != nil {
		b.Detach()
		return nil, fmt.Errorf("%w %s: %v", ErrCannotCreate, opts.Name, err)
	}
	return b, nil
}

// Untie releases every named variable, continuing past failures
// The returned error joins the per-name failures, nil means all released
func Untie(tbl *host.Table, forceWritable bool, names ...string) error {
	var errs []error
	for _, name := range names {
		if err := UntieName(tbl, name, forceWritable); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UntieName releases one tied variable
//
// The variable must exist and must be one of ours. A read-only tie refuses
// unless forceWritable drops the protection first, which is the one
// sanctioned way to untie a read-only variable.
func UntieName(tbl *host.Table, name string, forceWritable bool) error {
	v, ok := tbl.Get(name)
	if !ok {
		return fmt.Errorf("%w %s", ErrCannotUntie, name)
	}
	if !IsTied(v) {
		return fmt.Errorf("%w: %s", ErrNotTied, name)
	}

	if forceWritable {
		v.Flags &^= host.FlagReadOnly
	}
	if err := tbl.Unset(name); err != nil {
		return fmt.Errorf("%w %s: %v", ErrCannotUntie, name, err)
	}
	return nil
}

// IsTied reports whether the variable is bound by this module
func IsTied(v *host.Var) bool {
	if v == nil {
		return false
	}
	_, ok := v.Hash.(*Hash)
	return ok
}

// BindingOf returns the registry entry behind a tied variable
func BindingOf(v *host.Var) (*Binding, bool) {
	if v == nil {
		return nil, false
	}
	h, ok := v.Hash.(*Hash)
	if !ok {
		return nil, false
	}
	return h.binding, true
}

// Info describes one tied variable for listings
type Info struct {
	Name string // Variable name
	ID   string // Binding id
	Path string // Database file path
	Mode string // Open mode label
	Keys int    // Keys currently in the backend
}

// List returns the tied variables of a table in name order
func List(tbl *host.Table) []Info {
	var out []Info
	for _, name := range tbl.Names() {
		v, ok := tbl.Get(name)
		if !ok {
			continue
		}
		b, ok := BindingOf(v)
		if !ok {
			continue
		}

		info := Info{Name: name, ID: b.ID(), Path: b.Path(), Mode: b.Mode()}
		if db := b.DB(); db != nil {
			if n, err := db.Count(); err == nil {
				info.Keys = n
			}
		}
		out = append(out, info)
	}
	return out
}
