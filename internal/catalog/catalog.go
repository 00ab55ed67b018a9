// Package catalog resolves table names to on-disk directories under one
// root and keeps open heap.Table handles alive across statements, taking
// the place of the prototype's settings.py module constant
// (PBDB_FILES_PATH) with an explicit, per-instance root directory —
// idiomatic Go favors passing configuration in over a package-level
// global.
package catalog

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
	"pengobase/internal/storage/heap"
)

// Catalog owns the root directory of tables and caches open table
// handles so repeated statements against the same table reuse one
// handle instead of reopening its files every time.
type Catalog struct {
	root string
	log  *zap.SugaredLogger

	mu    sync.Mutex
	open  map[string]*heap.Table
}

// Open returns a Catalog rooted at root, creating the directory if it
// does not yet exist.
func Open(root string, log *zap.SugaredLogger) (*Catalog, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, dberrors.TableWrap("create catalog root directory", err)
	}
	return &Catalog{root: root, log: log, open: map[string]*heap.Table{}}, nil
}

// Root returns the catalog's root directory.
func (c *Catalog) Root() string { return c.root }

// Exists reports whether a table directory named name exists under the
// catalog root.
func (c *Catalog) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(c.root, name))
	return err == nil
}

// CreateTable creates a brand-new table and caches its handle.
func (c *Catalog) CreateTable(name string, columns []schema.Column) (*heap.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := heap.Create(c.root, name, columns, c.log)
	if err != nil {
		return nil, err
	}
	c.open[name] = t
	return t, nil
}

// Table returns the open handle for name, opening it from disk on first
// use.
func (c *Catalog) Table(name string) (*heap.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.open[name]; ok {
		return t, nil
	}
	if !c.Exists(name) {
		return nil, dberrors.Table("table " + name + " does not exist")
	}
	t, err := heap.Open(c.root, name, c.log)
	if err != nil {
		return nil, err
	}
	c.open[name] = t
	return t, nil
}

// DropTable closes and deletes name's table directory, evicting it from
// the open-handle cache.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.open[name]
	if ok {
		delete(c.open, name)
	} else {
		if !c.Exists(name) {
			return dberrors.Table("table " + name + " does not exist")
		}
		var err error
		t, err = heap.Open(c.root, name, c.log)
		if err != nil {
			return err
		}
	}
	return t.Drop()
}

// CloseAll closes every cached table handle, for graceful shutdown.
func (c *Catalog) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for name, t := range c.open {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.open, name)
	}
	return first
}
