package mysql

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/mzafarm/datasmith/internal/core"
)

func introspectColumns(ctx context.Context, db *sql.DB, meta *core.TableMetadata) error {
	rows, err := db.QueryContext(ctx, `
		SELECT
			column_name,
			column_type,
			is_nullable,
			column_default,
			extra,
			column_key,
			generation_expression,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`, meta.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, colType, nullable, extra, colKey sql.NullString
			defaultVal, genExpr                    sql.NullString
			charLen, numPrecision, numScale         sql.NullInt64
		)
		if err := rows.Scan(&name, &colType, &nullable, &defaultVal, &extra, &colKey,
			&genExpr, &charLen, &numPrecision, &numScale); err != nil {
			return err
		}

		col := &core.ColumnMetadata{
			Name:          name.String,
			SQLType:       colType.String,
			Nullable:      nullable.String == "YES",
			PrimaryKey:    colKey.String == "PRI",
			AutoIncrement: strings.Contains(extra.String, "auto_increment"),
			Computed:      genExpr.Valid && genExpr.String != "",
		}

		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		if charLen.Valid {
			v := charLen.Int64
			col.Length = &v
		}
		if numPrecision.Valid {
			v := numPrecision.Int64
			col.Precision = &v
		}
		if numScale.Valid {
			v := numScale.Int64
			col.Scale = &v
		}

		meta.Columns = append(meta.Columns, col)
	}

	return rows.Err()
}

func introspectForeignKeys(ctx context.Context, db *sql.DB, meta *core.TableMetadata) error {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ?
		  AND referenced_table_name IS NOT NULL
	`, meta.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col, refTable, refCol sql.NullString
		if err := rows.Scan(&col, &refTable, &refCol); err != nil {
			return err
		}
		if c := findColumn(meta, col.String); c != nil {
			c.ForeignKey = core.ForeignKeyRef{Table: refTable.String, Column: refCol.String}
		}
	}

	return rows.Err()
}

// introspectUniqueGroups gathers candidate unique groups from declared
// unique constraints/indexes and the primary key, normalizes each as a
// sorted tuple of column names, and fills in ColumnMetadata.Unique /
// MultiUnique per spec.md §4.1's algorithm.
func introspectUniqueGroups(ctx context.Context, db *sql.DB, meta *core.TableMetadata) error {
	rows, err := db.QueryContext(ctx, `
		SELECT index_name, column_name
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND non_unique = 0
		ORDER BY index_name, seq_in_index
	`, meta.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	groupsByName := make(map[string][]string)
	var order []string
	for rows.Next() {
		var idxName, colName sql.NullString
		if err := rows.Scan(&idxName, &colName); err != nil {
			return err
		}
		if _, ok := groupsByName[idxName.String]; !ok {
			order = append(order, idxName.String)
		}
		groupsByName[idxName.String] = append(groupsByName[idxName.String], colName.String)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	var groups [][]string
	for _, name := range order {
		cols := append([]string(nil), groupsByName[name]...)
		sort.Strings(cols)
		key := strings.Join(cols, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		groups = append(groups, cols)
	}

	for _, g := range groups {
		if len(g) == 1 {
			if c := findColumn(meta, g[0]); c != nil {
				c.Unique = true
			}
			continue
		}
		for _, name := range g {
			c := findColumn(meta, name)
			if c == nil || len(c.MultiUnique) > 0 {
				continue
			}
			c.MultiUnique = g
		}
	}

	return nil
}

func findColumn(meta *core.TableMetadata, name string) *core.ColumnMetadata {
	for _, c := range meta.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}
