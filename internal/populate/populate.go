// Package populate implements the Populator: validates and orders a
// TableSpec's ColumnSpecs, drives the row-major fill loop against the
// Generator Registry while enforcing single- and multi-column uniqueness,
// and builds paginated TablePackets. See spec.md §4.4.
package populate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mzafarm/datasmith/internal/core"
	"github.com/mzafarm/datasmith/internal/genregistry"
)

// maxAttempts is the per-cell retry budget before a column gives up on a
// row, per spec.md §4.4.
const maxAttempts = 10

// isOrdinary reports whether k is one of the kinds that run before python
// generators, in input order.
func isOrdinary(k core.GeneratorKind) bool {
	switch k {
	case core.GeneratorFaker, core.GeneratorRegex, core.GeneratorForeign, core.GeneratorConstant:
		return true
	default:
		return false
	}
}

func isSkipped(k core.GeneratorKind) bool {
	switch k {
	case core.GeneratorAutoincrement, core.GeneratorComputed, core.GeneratorNull:
		return true
	default:
		return false
	}
}

// Populator drives generation for table specs against a live schema.
type Populator struct {
	Source genregistry.ExistingValueSource
	cache  *PacketCache
}

// New returns a Populator backed by src for existing-value lookups.
func New(src genregistry.ExistingValueSource) *Populator {
	return &Populator{Source: src, cache: NewPacketCache()}
}

// Cache exposes the populator's paginated-result cache.
func (p *Populator) Cache() *PacketCache { return p.cache }

type runColumn struct {
	spec core.ColumnSpec
	meta *core.ColumnMetadata
	kind genregistry.Kind
	// dropped is set once the column's generator has been given up on for
	// the remainder of the batch (retry exhaustion or a stream error).
	dropped bool
}

// ProgressFunc reports fill-loop progress; row is 1-indexed and never
// decreases across the whole job. Each row is reported once with an empty
// column and then once per column filled in it.
type ProgressFunc func(row, total int, column string)

// BuildPacket runs the full synchronous generation pipeline for spec
// against meta and returns the resolved spec along with the resulting
// TablePacket. The resolved spec omits columns that failed validation or
// were dropped during the fill loop, and lists the generated columns in
// run order followed by the autoincrement/computed/null ones.
func (p *Populator) BuildPacket(ctx context.Context, meta *core.TableMetadata, spec *core.TableSpec, progress ProgressFunc) (*core.TableSpec, *core.TablePacket, error) {
	validationErrors, ordered, passthrough := p.validateAndSort(meta, spec.Columns)

	entries := make(map[string][]*string, len(spec.Columns))
	for _, c := range spec.Columns {
		entries[c.Name] = make([]*string, spec.NoOfEntries)
	}

	fillErrors := p.fill(ctx, meta, ordered, entries, spec.NoOfEntries, progress)
	postPassErrors := p.enforceMultiUniquePostPass(meta, ordered, entries, spec.NoOfEntries)

	resolvedColumns := make([]core.ColumnSpec, 0, len(spec.Columns))
	for _, c := range ordered {
		if !c.dropped {
			resolvedColumns = append(resolvedColumns, c.spec)
		}
	}
	resolvedColumns = append(resolvedColumns, passthrough...)

	resolvedSpec := *spec
	resolvedSpec.Columns = resolvedColumns

	columnNames := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		columnNames = append(columnNames, c.Name)
	}

	rows := transpose(columnNames, entries, spec.NoOfEntries)

	allErrors := append(validationErrors, fillErrors...)
	allErrors = append(allErrors, postPassErrors...)

	packet := &core.TablePacket{
		ID:           uuid.NewString(),
		Name:         spec.Name,
		Columns:      columnNames,
		Entries:      rows,
		Errors:       allErrors,
		Page:         0,
		PageSize:     spec.NormalizedPageSize(),
		TotalPages:   1,
		TotalEntries: len(rows),
	}

	return &resolvedSpec, packet, nil
}

// validateAndSort splits ColumnSpecs per spec.md §4.4: ordinary generators
// first in input order, then python generators ordered by ascending Order
// hint (ties broken by first-seen order, colliding hints incremented).
// Autoincrement/computed/null columns are returned separately as
// passthrough (never validated, never part of the run list).
func (p *Populator) validateAndSort(meta *core.TableMetadata, specs []core.ColumnSpec) ([]core.ErrorPacket, []*runColumn, []core.ColumnSpec) {
	var errs []core.ErrorPacket
	var ordinary []*runColumn
	var pythons []*runColumn
	var passthrough []core.ColumnSpec

	usedOrders := make(map[int]bool)

	for _, spec := range specs {
		if isSkipped(spec.Type) {
			passthrough = append(passthrough, spec)
			continue
		}

		kind, err := genregistry.New(spec.Type)
		if err != nil {
			errs = append(errs, core.ErrorPacket{Type: core.SeverityError, Column: spec.Name, Msg: err.Error()})
			continue
		}

		if _, err := kind.Validate(spec.Generator); err != nil {
			errs = append(errs, core.ErrorPacket{Type: core.SeverityError, Column: spec.Name, Msg: err.Error()})
			continue
		}

		colMeta := findColumn(meta, spec.Name)
		if colMeta == nil {
			errs = append(errs, core.ErrorPacket{Type: core.SeverityError, Column: spec.Name, Msg: fmt.Sprintf("column %q not found in table %q", spec.Name, meta.Name)})
			continue
		}

		rc := &runColumn{spec: spec, meta: colMeta, kind: kind}

		if spec.Type == core.GeneratorPython {
			order := spec.Order
			for usedOrders[order] {
				order++
			}
			usedOrders[order] = true
			rc.spec.Order = order
			pythons = append(pythons, rc)
		} else {
			ordinary = append(ordinary, rc)
		}
	}

	sort.SliceStable(pythons, func(i, j int) bool {
		return pythons[i].spec.Order < pythons[j].spec.Order
	})

	return errs, append(ordinary, pythons...), passthrough
}

func findColumn(meta *core.TableMetadata, name string) *core.ColumnMetadata {
	for _, c := range meta.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// fill runs the row-major fill loop over the ordered run list.
func (p *Populator) fill(ctx context.Context, meta *core.TableMetadata, ordered []*runColumn, entries map[string][]*string, numRows int, progress ProgressFunc) []core.ErrorPacket {
	var errs []core.ErrorPacket
	cache := genregistry.NewJobCache()
	filled := make([][]bool, numRows)
	for i := range filled {
		filled[i] = make([]bool, len(ordered))
	}

	for rowIdx := 0; rowIdx < numRows; rowIdx++ {
		if progress != nil {
			progress(rowIdx+1, numRows, "")
		}
		for colPos, rc := range ordered {
			if rc.dropped {
				continue
			}
			if progress != nil {
				progress(rowIdx+1, numRows, rc.spec.Name)
			}

			gctx := &genregistry.GenContext{
				Table:   meta,
				Column:  rc.meta,
				Spec:    rc.spec.Generator,
				RowIdx:  rowIdx,
				NumRows: numRows,
				Entries: entries,
				Cache:   cache,
				Source:  p.Source,
			}

			accepted := false
			for attempt := 0; attempt < maxAttempts; attempt++ {
				value, err := rc.kind.Stream(ctx, gctx)
				if err != nil {
					rc.dropped = true
					severity := core.SeverityError
					if errors.Is(err, genregistry.ErrEmptyForeignSource) && rc.meta.Nullable {
						severity = core.SeverityWarning
					}
					errs = append(errs, core.ErrorPacket{Type: severity, Column: rc.spec.Name, Msg: err.Error()})
					break
				}
				ok, err := p.isValid(ctx, meta, ordered, rc, colPos, value, entries, filled, rowIdx, cache)
				if err != nil {
					rc.dropped = true
					errs = append(errs, core.ErrorPacket{Type: core.SeverityError, Column: rc.spec.Name, Msg: err.Error()})
					break
				}
				if ok {
					entries[rc.spec.Name][rowIdx] = value
					filled[rowIdx][colPos] = true
					accepted = true
					break
				}
			}

			if rc.dropped {
				continue
			}
			if !accepted {
				msg := fmt.Sprintf("failed to populate column %q: retry budget exhausted at row %d", rc.spec.Name, rowIdx)
				if rc.meta.Nullable {
					errs = append(errs, core.ErrorPacket{Type: core.SeverityWarning, Column: rc.spec.Name, Msg: msg})
					rc.dropped = true
				} else {
					errs = append(errs, core.ErrorPacket{Type: core.SeverityError, Column: rc.spec.Name, Msg: msg})
					rc.dropped = true
				}
			}
		}
	}

	return errs
}

// isValid implements spec.md §4.4's uniqueness predicate.
func (p *Populator) isValid(
	ctx context.Context,
	meta *core.TableMetadata,
	ordered []*runColumn,
	rc *runColumn,
	colPos int,
	value *string,
	entries map[string][]*string,
	filled [][]bool,
	rowIdx int,
	cache *genregistry.JobCache,
) (bool, error) {
	if value == nil {
		return true, nil
	}

	if rc.meta.Unique {
		for i := 0; i < rowIdx; i++ {
			if v := entries[rc.spec.Name][i]; v != nil && *v == *value {
				return false, nil
			}
		}
		existing, err := cache.ExistingValues(ctx, p.Source, meta.Name, rc.spec.Name)
		if err != nil {
			return false, err
		}
		for _, e := range existing {
			if e == *value {
				return false, nil
			}
		}
	}

	if len(rc.meta.MultiUnique) > 1 {
		group := rc.meta.MultiUnique
		tuple := make(map[string]string, len(group))
		tuple[rc.spec.Name] = *value

		for _, sibling := range group {
			if sibling == rc.spec.Name {
				continue
			}
			siblingPos := findRunColumnPos(ordered, sibling)
			if siblingPos < 0 || !filled[rowIdx][siblingPos] {
				// Sibling not yet filled this row; defer the check to
				// when the last sibling is evaluated.
				return true, nil
			}
			v := entries[sibling][rowIdx]
			if v == nil {
				return true, nil // NULL in tuple: skip check entirely.
			}
			tuple[sibling] = *v
		}

		for i := 0; i < rowIdx; i++ {
			if tupleEquals(group, entries, i, tuple) {
				return false, nil
			}
		}

		for _, col := range group {
			existing, err := cache.ExistingValues(ctx, p.Source, meta.Name, col)
			if err != nil {
				return false, err
			}
			for _, e := range existing {
				if e == tuple[col] {
					return false, nil
				}
			}
		}
	}

	return true, nil
}

func findRunColumnPos(ordered []*runColumn, name string) int {
	for i, rc := range ordered {
		if rc.spec.Name == name {
			return i
		}
	}
	return -1
}

func tupleEquals(group []string, entries map[string][]*string, rowIdx int, tuple map[string]string) bool {
	for _, col := range group {
		v := entries[col][rowIdx]
		if v == nil {
			return false // a previously generated tuple with any NULL is excluded from the check.
		}
		if *v != tuple[col] {
			return false
		}
	}
	return true
}

func transpose(columns []string, entries map[string][]*string, numRows int) [][]*string {
	rows := make([][]*string, numRows)
	for r := 0; r < numRows; r++ {
		row := make([]*string, len(columns))
		for i, col := range columns {
			row[i] = entries[col][r]
		}
		rows[r] = row
	}
	return rows
}
