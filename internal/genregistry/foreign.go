package genregistry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// ErrEmptyForeignSource is returned by foreignKind.Stream when the
// referenced (table, column) has no existing non-null values to sample
// from. Callers (internal/populate's fill loop) check for this sentinel
// with errors.Is to decide between a warning (nullable column) and an
// error (non-nullable column), per spec.md §4.3: "raises a warning when
// the column is nullable, an error otherwise."
var ErrEmptyForeignSource = errors.New("genregistry: no existing values found for foreign reference")

// foreignKind samples uniformly from the distinct non-null values already
// present in a referenced (table, column), given as "table.column" in the
// spec string. First access per reference populates the job's per-job
// cache (internal/genregistry.JobCache), per spec.md §4.3/§9.
type foreignKind struct{}

func parseForeignRef(spec string) (table, column string, err error) {
	idx := strings.LastIndex(spec, ".")
	if idx <= 0 || idx == len(spec)-1 {
		return "", "", fmt.Errorf("genregistry: foreign reference %q must be \"table.column\"", spec)
	}
	return spec[:idx], spec[idx+1:], nil
}

func (foreignKind) Validate(spec string) (int, error) {
	_, _, err := parseForeignRef(spec)
	return 0, err
}

func (foreignKind) Stream(ctx context.Context, gctx *GenContext) (*string, error) {
	table, column, err := parseForeignRef(gctx.Spec)
	if err != nil {
		return nil, err
	}

	values, err := gctx.Cache.ForeignValues(ctx, gctx.Source, table, column)
	if err != nil {
		return nil, fmt.Errorf("genregistry: loading foreign values for %s.%s: %w", table, column, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w %s.%s", ErrEmptyForeignSource, table, column)
	}

	v := values[rand.Intn(len(values))]
	return &v, nil
}
