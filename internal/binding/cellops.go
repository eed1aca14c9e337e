package binding

import "github.com/dreamware/tiekv/internal/host"

// cellOps is the hook set every cell of a tied variable shares
//
// It keeps the cell's cache in step with the backend: reads come from the
// cache while it is fresh and from the backend otherwise, writes land in
// the cache first and are mirrored through. One instance serves all cells
// of a binding, so a detached binding changes every cell's behavior at
// once without touching the cells themselves.
type cellOps struct {
	binding *Binding
}

var _ host.CellOps = (*cellOps)(nil)

// Get reads the element, consulting the backend when the cache is stale
//
// A fresh cell answers locally. A stale cell probes the backend for the
// key first: on a hit the value is fetched, cached and the cell marked
// fresh, on a miss the read yields empty and the cell deliberately stays
// stale, so the next read probes again even if the key never appears.
func (o *cellOps) Get(c *host.Cell) []byte {
	if c.UpToDate() {
		if value, ok := c.Cached(); ok {
			return value
		}
		return []byte{}
	}

	db := o.binding.DB()
	if db == nil {
		// No backend left, the cache is all there is
		if value, ok := c.Cached(); ok {
			return value
		}
		return []byte{}
	}

	key := []byte(c.Key())
	ok, err := db.Exists(key)
	if err != nil || !ok {
		return []byte{}
	}

	value, ok, err := db.Fetch(key)
	if err != nil || !ok {
		return []byte{}
	}
	c.StoreCached(value)
	return value
}

// Set writes the element, cache first, then through to the backend
//
// The cache update is unconditional, a missing or failing backend never
// blocks the assignment and the cached value stands either way. A nil
// value means the element becomes absent, which reaches the backend as a
// delete.
func (o *cellOps) Set(c *host.Cell, value []byte) {
	if value == nil {
		c.ClearCached()
	} else {
		c.StoreCached(value)
	}

	db := o.binding.DB()
	if db == nil {
		return
	}

	key := []byte(c.Key())
	if value == nil {
		// Deleting an absent key is as good as deleted
		_ = db.Delete(key)
		return
	}
	_ = db.Store(key, value, true)
}

// Unset makes the element absent on both sides
func (o *cellOps) Unset(c *host.Cell) {
	o.Set(c, nil)
}
