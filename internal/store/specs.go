package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mzafarm/datasmith/internal/core"
)

// SaveTableSpec persists spec keyed by (db_id, table_name), replacing any
// previous spec for that key, per spec.md §3's "saving replaces any
// previous spec for that key." Designed directly from spec.md §6's schema
// description — original_source's save_specs was an unimplemented stub.
func (s *Store) SaveTableSpec(spec *core.TableSpec) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: starting spec save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM table_specs WHERE db_id = ? AND name = ?
	`, spec.DBID, spec.Name); err != nil {
		return fmt.Errorf("store: clearing previous spec: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO table_specs (db_id, name, no_of_entries, page_size) VALUES (?, ?, ?, ?)
	`, spec.DBID, spec.Name, spec.NoOfEntries, spec.NormalizedPageSize())
	if err != nil {
		return fmt.Errorf("store: saving table spec: %w", err)
	}
	tableID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: reading new table_spec id: %w", err)
	}

	for _, col := range spec.Columns {
		if _, err := tx.Exec(`
			INSERT INTO column_specs (table_id, name, generator, type, "order") VALUES (?, ?, ?, ?, ?)
		`, tableID, col.Name, col.Generator, string(col.Type), col.Order); err != nil {
			return fmt.Errorf("store: saving column spec %q: %w", col.Name, err)
		}
	}

	return tx.Commit()
}

// LoadTableSpec loads a previously saved spec for (dbID, tableName),
// backing get_pref_spec.
func (s *Store) LoadTableSpec(dbID int64, tableName string) (*core.TableSpec, error) {
	spec := &core.TableSpec{DBID: dbID, Name: tableName}
	var tableID int64

	err := s.db.QueryRow(`
		SELECT id, no_of_entries, page_size FROM table_specs WHERE db_id = ? AND name = ?
	`, dbID, tableName).Scan(&tableID, &spec.NoOfEntries, &spec.PageSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading table spec: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT name, generator, type, "order" FROM column_specs WHERE table_id = ? ORDER BY id
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("store: loading column specs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col core.ColumnSpec
		var typeStr string
		if err := rows.Scan(&col.Name, &col.Generator, &typeStr, &col.Order); err != nil {
			return nil, err
		}
		col.Type = core.GeneratorKind(typeStr)
		spec.Columns = append(spec.Columns, col)
	}

	return spec, rows.Err()
}
