package host

import (
	"errors"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrNotFound is returned when a variable name doesn't resolve
var ErrNotFound = errors.New("no such parameter")

// ErrExists is returned when creating a variable whose name is taken
var ErrExists = errors.New("parameter already exists")

// ErrReadOnly is returned when unsetting a read-only variable
var ErrReadOnly = errors.New("parameter is read-only")

// ErrBadName is returned for names the table refuses to hold
var ErrBadName = errors.New("invalid parameter name")

// Var is one named hash variable
type Var struct {
	Name  string    // Variable name
	Flags Flag      // Attribute bits
	Hash  Container // Element container
}

// ReadOnly reports whether the variable rejects unsetting and assignment
func (v *Var) ReadOnly() bool {
	return v.Flags.Has(FlagReadOnly)
}

// Table is the interpreter's variable table
// It belongs to the interpreter's single control thread and is not locked
type Table struct {
	vars map[string]*Var
}

// NewTable creates an empty variable table
func NewTable() *Table {
	return &Table{vars: make(map[string]*Var)}
}

// Get resolves name to its variable
func (t *Table) Get(name string) (*Var, bool) {
	v, ok := t.vars[name]
	return v, ok
}

// Create adds a new variable under name with the given flags and container
// A nil container gets the in-memory default
func (t *Table) Create(name string, flags Flag, c Container) (*Var, error) {
	if name == "" {
		return nil, ErrBadName
	}
	if _, ok := t.vars[name]; ok {
		return nil, ErrExists
	}

	if c == nil {
		c = NewMemContainer()
	}
	v := &Var{Name: name, Flags: flags, Hash: c}
	t.vars[name] = v
	return v, nil
}

// Fetch resolves name to its variable, creating a plain removable hash
// when missing
func (t *Table) Fetch(name string) (*Var, error) {
	if v, ok := t.vars[name]; ok {
		return v, nil
	}
	return t.Create(name, FlagRemovable, nil)
}

// Assign replaces the whole content of the variable under name with the
// given pairs, creating a plain removable hash when missing
//
// Read-only variables refuse. The pairs travel through the container's
// bulk replacement, so a backed container writes them through rather than
// merging element by element.
func (t *Table) Assign(name string, pairs map[string][]byte) (*Var, error) {
	v, err := t.Fetch(name)
	if err != nil {
		return nil, err
	}
	if v.ReadOnly() {
		return nil, ErrReadOnly
	}

	src := NewMemContainer()
	for key, value := range pairs {
		src.Fetch(key).SetValue(value)
	}
	v.Hash.Replace(src)
	return v, nil
}

// Unset destroys the variable under name
//
// Read-only variables refuse, leaving the variable in place. Otherwise the
// container is torn down cell by cell, the special and read-only bits are
// dropped and the name is released.
func (t *Table) Unset(name string) error {
	v, ok := t.vars[name]
	if !ok {
		return ErrNotFound
	}
	if v.ReadOnly() {
		return ErrReadOnly
	}

	v.Hash.Teardown()
	v.Flags &^= FlagSpecial | FlagReadOnly
	delete(t.vars, name)
	return nil
}

// Names returns all variable names in sorted order
func (t *Table) Names() []string {
	names := maps.Keys(t.vars)
	slices.Sort(names)
	return names
}

// Len returns the number of variables in the table
func (t *Table) Len() int {
	return len(t.vars)
}
