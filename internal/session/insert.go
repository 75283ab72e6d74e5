package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mzafarm/datasmith/internal/core"
)

// sqlExecer is satisfied by both *sql.DB and *sql.Tx, letting Insert run
// against whichever is active without duplicating its SQL-building logic.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Session) execer() sqlExecer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Insert bulk-inserts packet's rows into table as a single multi-row INSERT
// statement, updates the usage-statistics ledger, and bumps the
// uncommitted-write counter. Opens the session's transaction on first use
// if one isn't already open, so the insert and every one that follows it
// run inside that same transaction until the next commit/rollback, per
// spec.md §3's lifecycle note. Backs set_db_insert.
func (s *Session) Insert(ctx context.Context, table string, packet *core.TablePacket) error {
	if len(packet.Entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		if err := s.beginTxLocked(ctx); err != nil {
			return err
		}
	}

	query, args := buildInsertStatement(table, packet.Columns, packet.Entries)
	if _, err := s.execer().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("session: inserting into %q: %w", table, err)
	}

	s.uncommitted += len(packet.Entries)
	st, ok := s.usage[table]
	if !ok {
		st = &core.UsageStat{TableName: table}
		s.usage[table] = st
	}
	st.NewRows += len(packet.Entries)
	st.LastAccessed = time.Now().Unix()

	return nil
}

func buildInsertStatement(table string, columns []string, rows [][]*string) (string, []any) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "`" + c + "`"
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO `")
	sb.WriteString(table)
	sb.WriteString("` (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	placeholders := make([]string, len(rows))
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	for i, row := range rows {
		placeholders[i] = rowPlaceholder
		for _, v := range row {
			if v == nil {
				args = append(args, nil)
			} else {
				args = append(args, *v)
			}
		}
	}
	sb.WriteString(strings.Join(placeholders, ", "))

	return sb.String(), args
}

// ExportSQL renders packet as a standalone .sql script: a comment header
// naming the export timestamp followed by one compound INSERT statement,
// escaping values the way the original populator's export_sql_packet did
// (backslash-escaped embedded quotes, NULL spelled out unquoted). Backs
// set_db_export.
func (s *Session) ExportSQL(table string, packet *core.TablePacket) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("-- Exported at %s\n", time.Now().Format("2006-01-02 15:04:05")))

	quoted := make([]string, len(packet.Columns))
	for i, c := range packet.Columns {
		quoted[i] = "`" + c + "`"
	}
	header := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES\n", table, strings.Join(quoted, ", "))

	sb.WriteString(header)
	for i, row := range packet.Entries {
		sb.WriteString("  (")
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(escapeSQLLiteral(v))
		}
		sb.WriteString(")")
		if i < len(packet.Entries)-1 {
			sb.WriteString(",\n")
		} else {
			sb.WriteString(";\n")
		}
	}
	return sb.String()
}

// escapeSQLLiteral renders v as a single-quoted literal with backslash-
// escaped embedded quotes, per spec.md §6 — the literal NULL (any case)
// passes through unquoted, matching the original populator's
// export_sql_packet rule exactly.
func escapeSQLLiteral(v *string) string {
	if v == nil || strings.EqualFold(*v, "NULL") {
		return "NULL"
	}
	return "'" + strings.ReplaceAll(*v, "'", "\\'") + "'"
}

// ExistingValues returns the distinct non-null values of table.column,
// implementing genregistry.ExistingValueSource so the populator can
// enforce uniqueness and sample foreign references against live data.
func (s *Session) ExistingValues(ctx context.Context, table, column string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT `%s` FROM `%s` WHERE `%s` IS NOT NULL", column, table, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("session: loading existing values for %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			values = append(values, v.String)
		}
	}
	return values, rows.Err()
}

// RunQuery executes an ad-hoc SQL statement (or batch of statements) with a
// bounded timeout, reusing the same TiDB-parser-based statement splitter
// the teacher's migration path used. Only the first statement's result set
// (if any) is returned as rows of string pointers; subsequent statements
// run for their side effects.
func (s *Session) RunQuery(ctx context.Context, sqlText string) ([]string, [][]*string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	statements := s.splitStatements(sqlText)
	if len(statements) == 0 {
		return nil, nil, fmt.Errorf("session: no statements to run")
	}

	var columns []string
	var result [][]*string

	s.mu.Lock()
	exec := s.execer()
	s.mu.Unlock()

	for i, stmt := range statements {
		rows, err := exec.QueryContext(ctx, stmt)
		if err != nil {
			return nil, nil, fmt.Errorf("session: statement %d failed (%s): %w", i+1, truncateSQL(stmt, 80), err)
		}

		if i == 0 {
			columns, result, err = scanRows(rows)
		} else {
			err = rows.Close()
		}
		if err != nil {
			return nil, nil, err
		}
	}

	return columns, result, nil
}

func scanRows(rows *sql.Rows) ([]string, [][]*string, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var result [][]*string
	for rows.Next() {
		raw := make([]sql.NullString, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		row := make([]*string, len(columns))
		for i, v := range raw {
			if v.Valid {
				val := v.String
				row[i] = &val
			}
		}
		result = append(result, row)
	}

	return columns, result, rows.Err()
}
