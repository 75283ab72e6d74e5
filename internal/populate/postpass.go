package populate

import (
	"fmt"

	"github.com/mzafarm/datasmith/internal/core"
)

// enforceMultiUniquePostPass resolves spec.md §9's Open Question: since
// generator order doesn't guarantee the last sibling of a multi-unique
// group fills last, a final pass re-validates every group across the
// completed table. A duplicate tuple has its last-ordered member column
// overwritten with NULL for that row if nullable; otherwise one error
// ErrorPacket is attached naming the group and the table is still
// returned.
func (p *Populator) enforceMultiUniquePostPass(meta *core.TableMetadata, ordered []*runColumn, entries map[string][]*string, numRows int) []core.ErrorPacket {
	var errs []core.ErrorPacket
	seenGroups := make(map[string]bool)

	for _, col := range meta.Columns {
		if len(col.MultiUnique) <= 1 {
			continue
		}
		groupKey := fmt.Sprint(col.MultiUnique)
		if seenGroups[groupKey] {
			continue
		}
		seenGroups[groupKey] = true

		lastCol := lastOrderedMember(col.MultiUnique, ordered)
		lastMeta := findColumn(meta, lastCol)

		seenTuples := make(map[string]bool)
		errored := false
		for row := 0; row < numRows; row++ {
			key, ok := tupleKey(col.MultiUnique, entries, row)
			if !ok {
				continue // a NULL component excludes the row from the check.
			}
			if !seenTuples[key] {
				seenTuples[key] = true
				continue
			}

			if lastMeta != nil && lastMeta.Nullable {
				entries[lastCol][row] = nil
			} else if !errored {
				errs = append(errs, core.ErrorPacket{
					Type: core.SeverityError,
					Msg:  fmt.Sprintf("multi-unique group %v has a duplicate tuple at row %d", col.MultiUnique, row),
				})
				errored = true
			}
		}
	}

	return errs
}

func lastOrderedMember(group []string, ordered []*runColumn) string {
	best := -1
	bestName := group[len(group)-1]
	for _, name := range group {
		if pos := findRunColumnPos(ordered, name); pos > best {
			best = pos
			bestName = name
		}
	}
	return bestName
}

func tupleKey(group []string, entries map[string][]*string, row int) (string, bool) {
	key := ""
	for _, col := range group {
		v := entries[col][row]
		if v == nil {
			return "", false
		}
		key += *v + "\x00"
	}
	return key, true
}
