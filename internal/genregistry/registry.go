// Package genregistry holds the Generator Registry: the set of generator
// kinds a ColumnSpec may declare, each exposing a Validate/Stream pair as
// described in spec.md §4.3.
package genregistry

import (
	"context"
	"fmt"

	"github.com/mzafarm/datasmith/internal/core"
)

// GenContext is the per-call context a Kind's Stream method receives. It
// carries the row being filled, read access to sibling columns already
// filled for this row, and the per-job caches that foreign/unique lookups
// share across the whole table generation.
type GenContext struct {
	Table   *core.TableMetadata
	Column  *core.ColumnMetadata
	// Spec is the ColumnSpec.Generator string driving this stream (e.g. a
	// regex pattern, a "table.column" foreign reference, a faker method
	// name, a literal constant, or a python script body).
	Spec    string
	RowIdx  int
	NumRows int
	// Entries exposes the column->row-values map, the same shared
	// structure the Populator fills in, so a python generator's columns
	// argument and a regular generator's need to read siblings both work
	// off the same data.
	Entries map[string][]*string
	Cache   *JobCache
	Source  ExistingValueSource
}

// ExistingValueSource fetches distinct values already stored in the
// database for uniqueness checks and foreign-key sampling. Implemented by
// internal/session.
type ExistingValueSource interface {
	ExistingValues(ctx context.Context, table, column string) ([]string, error)
}

// Kind is a generator kind: faker, regex, foreign, python, or constant.
// Autoincrement, computed, and null columns never reach the registry —
// internal/populate's isSkipped routes them into a passthrough path before
// genregistry.New is ever invoked, since they always yield NULL and need no
// Validate/Stream pair.
type Kind interface {
	// Validate syntactically checks the generator spec string and returns
	// an order hint. Every kind here returns 0; python generators are
	// ordered by ColumnSpec.Order instead.
	Validate(spec string) (orderHint int, err error)

	// Stream produces one candidate value for the current row. A nil
	// string pointer means NULL.
	Stream(ctx context.Context, gctx *GenContext) (*string, error)
}

// New constructs the Kind implementation for a generator type.
func New(kind core.GeneratorKind) (Kind, error) {
	switch kind {
	case core.GeneratorFaker:
		return &fakerKind{}, nil
	case core.GeneratorRegex:
		return &regexKind{}, nil
	case core.GeneratorForeign:
		return &foreignKind{}, nil
	case core.GeneratorPython:
		return &pythonKind{}, nil
	case core.GeneratorConstant:
		return &constantKind{}, nil
	default:
		return nil, fmt.Errorf("genregistry: unsupported column type: %s", kind)
	}
}

// JobCache holds per-generation-job lookup caches: existing-value sets for
// uniqueness checks and distinct FK value lists for foreign sampling. It is
// created fresh per generation job and discarded afterward (spec.md §5,
// §9's "Per-job caches" note).
type JobCache struct {
	existing map[string][]string // "table.column" -> distinct values
	foreign  map[string][]string // "table.column" -> distinct values, reused for foreign sampling
}

// NewJobCache returns an empty per-job cache.
func NewJobCache() *JobCache {
	return &JobCache{
		existing: make(map[string][]string),
		foreign:  make(map[string][]string),
	}
}

func cacheKey(table, column string) string { return table + "." + column }

// ExistingValues lazily loads and caches the distinct existing values for
// (table, column), fetching from src only on first access.
func (c *JobCache) ExistingValues(ctx context.Context, src ExistingValueSource, table, column string) ([]string, error) {
	key := cacheKey(table, column)
	if v, ok := c.existing[key]; ok {
		return v, nil
	}
	v, err := src.ExistingValues(ctx, table, column)
	if err != nil {
		return nil, err
	}
	c.existing[key] = v
	return v, nil
}

// ForeignValues lazily loads and caches the distinct values of a foreign
// reference for uniform sampling.
func (c *JobCache) ForeignValues(ctx context.Context, src ExistingValueSource, table, column string) ([]string, error) {
	key := cacheKey(table, column)
	if v, ok := c.foreign[key]; ok {
		return v, nil
	}
	v, err := src.ExistingValues(ctx, table, column)
	if err != nil {
		return nil, err
	}
	c.foreign[key] = v
	return v, nil
}
