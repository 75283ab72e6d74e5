// Package introspect contains the main Schema Inspector interface, letting
// callers introspect a live database connection for table and column
// metadata, row counts, and foreign-key structure. Concrete dialects
// register themselves in an init function; see internal/introspect/mysql.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mzafarm/datasmith/internal/core"
)

// Inspector introspects a live database connection.
type Inspector interface {
	// Tables returns the set of base table names in the connected schema.
	Tables(ctx context.Context, db *sql.DB) ([]string, error)

	// TableMetadata introspects a single table's column and constraint
	// metadata.
	TableMetadata(ctx context.Context, db *sql.DB, table string) (*core.TableMetadata, error)

	// RowCount returns SELECT COUNT(*) for a table.
	RowCount(ctx context.Context, db *sql.DB, table string) (int64, error)
}

var (
	registry = make(map[core.Dialect]func() Inspector)
	mu       sync.RWMutex
)

// Register associates a dialect with a constructor for its Inspector.
func Register(dialect core.Dialect, fn func() Inspector) {
	mu.Lock()
	defer mu.Unlock()
	registry[dialect] = fn
}

// New returns a fresh Inspector for the given dialect.
func New(dialect core.Dialect) (Inspector, error) {
	mu.RLock()
	fn, ok := registry[dialect]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("introspect: unsupported dialect %v", dialect)
	}

	return fn(), nil
}
