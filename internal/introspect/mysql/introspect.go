// Package mysql contains the Schema Inspector implementation for MySQL,
// MariaDB and TiDB — since all three speak the same wire protocol and
// information_schema shape, one inspecter serves all three dialects.
package mysql

import (
	"context"
	"database/sql"
	"sort"

	"github.com/mzafarm/datasmith/internal/core"
	"github.com/mzafarm/datasmith/internal/introspect"
)

func init() {
	introspect.Register(core.DialectMySQL, New)
	introspect.Register(core.DialectMariaDB, New)
	introspect.Register(core.DialectTiDB, New)
}

type inspecter struct{}

// New returns a MySQL-family Inspector.
func New() introspect.Inspector {
	return &inspecter{}
}

func (i *inspecter) Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (i *inspecter) RowCount(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var count int64
	// table is always sourced from information_schema.tables, never user
	// input, so building the identifier into the statement is safe here.
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM `"+table+"`").Scan(&count)
	return count, err
}

func (i *inspecter) TableMetadata(ctx context.Context, db *sql.DB, table string) (*core.TableMetadata, error) {
	meta := &core.TableMetadata{Name: table}

	if err := introspectColumns(ctx, db, meta); err != nil {
		return nil, err
	}
	if err := introspectForeignKeys(ctx, db, meta); err != nil {
		return nil, err
	}
	if err := introspectUniqueGroups(ctx, db, meta); err != nil {
		return nil, err
	}

	parents := make(map[string]struct{})
	for _, c := range meta.Columns {
		if c.HasForeignKey() {
			parents[c.ForeignKey.Table] = struct{}{}
		}
	}
	for p := range parents {
		meta.Parents = append(meta.Parents, p)
	}
	sort.Strings(meta.Parents)

	return meta, nil
}
