// Package catalog records the base tables a plan may reference as leaves.
//
// The registry is filled from the execution store at startup (or from a
// static list on the command line) and consumed by plan building, where it
// turns misspelled references into errors instead of unknown tables.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Table describes one base table.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns,omitempty"`
}

// Lister is implemented by stores that can enumerate their tables.
type Lister interface {
	Tables(ctx context.Context) ([]Table, error)
}

// Registry holds table metadata. Names are matched case-insensitively, as
// SQLite does, and reported in the spelling they were registered with. It
// is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table // keyed by lower-cased name
}

func key(name string) string { return strings.ToLower(name) }

// New creates a registry holding the named tables, without column metadata.
func New(names ...string) *Registry {
	r := &Registry{tables: make(map[string]*Table)}
	for _, name := range names {
		r.Register(Table{Name: name})
	}
	return r
}

// Load creates a registry from the tables a store reports.
func Load(ctx context.Context, l Lister) (*Registry, error) {
	tables, err := l.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	r := New()
	for _, t := range tables {
		r.Register(t)
	}
	return r, nil
}

// Register adds or replaces a table.
func (r *Registry) Register(t Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[key(t.Name)] = &t
}

// Table returns the metadata for a table, or nil.
func (r *Registry) Table(name string) *Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[key(name)]
}

// HasTable reports whether name is a registered table.
func (r *Registry) HasTable(name string) bool {
	return r.Table(name) != nil
}

// TableNames returns all table names in sorted order.
func (r *Registry) TableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for _, t := range r.tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// All returns every table in name order.
func (r *Registry) All() []Table {
	names := r.TableNames()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Table, 0, len(names))
	for _, name := range names {
		if t, ok := r.tables[key(name)]; ok {
			out = append(out, *t)
		}
	}
	return out
}
