package server

import (
	"fmt"

	"github.com/mzafarm/datasmith/internal/core"
)

// parseTableSpec decodes the body of get_gen_packets into a core.TableSpec.
// Field names are already snake_case by the time a handler sees them
// (normalizeBody runs before dispatch).
func parseTableSpec(body map[string]any) (*core.TableSpec, error) {
	if err := requireFields(body, "name", "no_of_entries", "columns"); err != nil {
		return nil, err
	}

	rawColumns, err := bodyColumns(body, "columns")
	if err != nil {
		return nil, err
	}

	spec := &core.TableSpec{
		Name:        bodyString(body, "name"),
		NoOfEntries: bodyIntOr(body, "no_of_entries", 0),
		PageSize:    bodyIntOr(body, "page_size", 100),
	}

	for i, raw := range rawColumns {
		colMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("server: columns[%d] must be an object", i)
		}
		if colMap["name"] == nil || colMap["type"] == nil {
			return nil, fmt.Errorf("server: columns[%d] requires name and type", i)
		}
		col := core.ColumnSpec{
			Name:      fmt.Sprint(colMap["name"]),
			Type:      core.GeneratorKind(fmt.Sprint(colMap["type"])),
			Generator: fmt.Sprint(colMap["generator"]),
		}
		if colMap["generator"] == nil {
			col.Generator = ""
		}
		if order, ok := bodyInt(colMap, "order"); ok {
			col.Order = order
		}
		spec.Columns = append(spec.Columns, col)
	}

	return spec, nil
}
