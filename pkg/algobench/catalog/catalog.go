// Package catalog defines the ordered list of algorithms a benchmark run
// iterates over.
//
// A catalog is immutable once built. Iteration order is catalog order;
// skipped entries keep their index but are never returned by First or Next.
//
//	c := catalog.Default()
//	for id := c.First(); id != catalog.Done; id = c.Next(id) {
//	    fmt.Println(c.Name(id))
//	}
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies an algorithm by its position in a catalog.
type ID int

// Done is the sentinel returned once every active algorithm has been visited.
const Done ID = -1

// DoneName is the display name of the Done sentinel.
const DoneName = "auto"

// Errors returned while building a catalog.
var (
	ErrEmpty        = errors.New("catalog has no algorithms")
	ErrDuplicate    = errors.New("duplicate algorithm name")
	ErrUnknown      = errors.New("unknown algorithm")
	ErrReservedName = errors.New("reserved algorithm name")
)

// Default algorithm names, in benchmark order.
var defaultNames = []string{
	"sha256d",
	"keccak",
	"blake2s",
	"blake2b",
	"xxh64",
	"pipe",
	"scrypt",
	"argon2id",
}

// defaultSkip lists entries that are dead or duplicated in the default catalog.
var defaultSkip = []string{"pipe"}

// Catalog is an ordered, finite list of algorithm names plus a skip set.
type Catalog struct {
	names []string
	index map[string]ID
	skip  map[ID]bool
}

// New builds a catalog from names in order. Names listed in skip are kept
// in the catalog but excluded from iteration.
func New(names []string, skip ...string) (*Catalog, error) {
	if len(names) == 0 {
		return nil, ErrEmpty
	}

	c := &Catalog{
		names: make([]string, len(names)),
		index: make(map[string]ID, len(names)),
		skip:  make(map[ID]bool),
	}

	for i, name := range names {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("%w: empty name at position %d", ErrUnknown, i)
		}
		if key == DoneName {
			return nil, fmt.Errorf("%w: %s", ErrReservedName, name)
		}
		if _, ok := c.index[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, name)
		}
		c.names[i] = key
		c.index[key] = ID(i)
	}

	for _, name := range skip {
		id, ok := c.index[normalize(name)]
		if !ok {
			return nil, fmt.Errorf("%w: cannot skip %q", ErrUnknown, name)
		}
		c.skip[id] = true
	}

	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultNames, defaultSkip...)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid default catalog: %v", err))
	}
	return c
}

// DefaultNames returns a copy of the built-in algorithm names.
func DefaultNames() []string {
	return append([]string(nil), defaultNames...)
}

// DefaultSkip returns a copy of the built-in skip list.
func DefaultSkip() []string {
	return append([]string(nil), defaultSkip...)
}

// Len returns the catalog size, skipped entries included.
func (c *Catalog) Len() int {
	return len(c.names)
}

// First returns the first non-skipped algorithm, or Done if none remain.
func (c *Catalog) First() ID {
	return c.scan(0)
}

// Next returns the algorithm after cur in catalog order, skipping entries in
// the skip set. It returns Done once cur was the last active algorithm.
func (c *Catalog) Next(cur ID) ID {
	if cur == Done {
		return Done
	}
	return c.scan(int(cur) + 1)
}

func (c *Catalog) scan(from int) ID {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(c.names); i++ {
		if !c.skip[ID(i)] {
			return ID(i)
		}
	}
	return Done
}

// Name returns the name of id. Done maps to DoneName.
func (c *Catalog) Name(id ID) string {
	if id == Done {
		return DoneName
	}
	if !c.Valid(id) {
		return fmt.Sprintf("algo#%d", int(id))
	}
	return c.names[id]
}

// Lookup resolves a name (case-insensitive) to its id.
func (c *Catalog) Lookup(name string) (ID, bool) {
	id, ok := c.index[normalize(name)]
	return id, ok
}

// Valid reports whether id indexes an entry of the catalog.
func (c *Catalog) Valid(id ID) bool {
	return id >= 0 && int(id) < len(c.names)
}

// Skipped reports whether id is excluded from iteration.
func (c *Catalog) Skipped(id ID) bool {
	return c.skip[id]
}

// Active returns every non-skipped id in iteration order.
func (c *Catalog) Active() []ID {
	ids := make([]ID, 0, len(c.names))
	for id := c.First(); id != Done; id = c.Next(id) {
		ids = append(ids, id)
	}
	return ids
}

// IDs returns every id in catalog order, skipped entries included.
func (c *Catalog) IDs() []ID {
	ids := make([]ID, len(c.names))
	for i := range c.names {
		ids[i] = ID(i)
	}
	return ids
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
