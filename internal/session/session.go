// Package session owns the Database Session: the live connection to a
// user's database, its transaction lifecycle, the uncommitted-write
// counter, the usage-statistics ledger, bulk insertion of generated
// TablePackets, SQL-file export, and ad-hoc query execution. Adapted from
// the teacher's internal/apply.Applier, dropping the preflight/danger
// analysis machinery that doesn't fit spec.md's run_sql_query semantics.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/format"

	"github.com/mzafarm/datasmith/internal/core"
)

// queryTimeout bounds run_sql_query per spec.md §4.5.
const queryTimeout = 10 * time.Second

// Session holds one live connection and its bookkeeping state.
type Session struct {
	db      *sql.DB
	parser  *parser.Parser
	creds   core.DbCreds
	version string

	mu          sync.Mutex
	tx          *sql.Tx
	uncommitted int
	usage       map[string]*core.UsageStat // keyed by table name
}

// Connect opens a connection to creds, pings it, and auto-detects the
// dialect/version the same way the teacher's schema-diff path did.
func Connect(ctx context.Context, creds core.DbCreds) (*Session, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", creds.User, creds.Password, creds.Host, creds.Port, creds.Name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: opening connection: %w", err)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("session: ping failed: %w; additionally failed to close: %w", pingErr, closeErr)
		}
		return nil, fmt.Errorf("session: ping failed: %w", pingErr)
	}

	dialect, version, err := detectDialect(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: detecting dialect: %w", err)
	}
	creds.Dialect = dialect

	return &Session{
		db:      db,
		parser:  parser.New(),
		creds:   creds,
		version: version,
		usage:   make(map[string]*core.UsageStat),
	}, nil
}

// Close closes the underlying connection, rolling back any open
// transaction and resetting the usage ledger first — disconnect implies
// rollback per spec.md §3's lifecycle note.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	s.uncommitted = 0
	for _, st := range s.usage {
		st.NewRows = 0
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Creds returns the credentials this session was opened with (with the
// detected dialect filled in).
func (s *Session) Creds() core.DbCreds { return s.creds }

// Version returns the server version string reported at connect time.
func (s *Session) Version() string { return s.version }

// DB exposes the raw connection for the schema inspector.
func (s *Session) DB() *sql.DB { return s.db }

// UncommittedCount reports how many rows are pending commit.
func (s *Session) UncommittedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uncommitted
}

// UsageStats returns a snapshot of the per-table usage-statistics ledger.
func (s *Session) UsageStats() []core.UsageStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make([]core.UsageStat, 0, len(s.usage))
	for _, st := range s.usage {
		stats = append(stats, *st)
	}
	return stats
}

func detectDialect(ctx context.Context, db *sql.DB) (core.Dialect, string, error) {
	var varName, comment string
	if err := db.QueryRowContext(ctx, "SHOW VARIABLES LIKE 'version_comment'").Scan(&varName, &comment); err != nil {
		return "", "", err
	}
	comment = strings.ToLower(comment)

	var version string
	_ = db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	if idx := strings.Index(version, "-"); idx > 0 {
		version = version[:idx]
	}

	switch {
	case strings.Contains(comment, "mariadb"):
		return core.DialectMariaDB, version, nil
	case strings.Contains(comment, "tidb"):
		return core.DialectTiDB, version, nil
	default:
		return core.DialectMySQL, version, nil
	}
}

func truncateSQL(stmt string, maxLen int) string {
	stmt = strings.TrimSpace(stmt)
	if maxLen <= 0 {
		maxLen = 60
	}
	if len(stmt) > maxLen {
		return stmt[:maxLen-3] + "..."
	}
	return stmt
}

// splitStatements mirrors the teacher's dual-strategy statement splitter:
// the TiDB parser first (dialect-aware), falling back to a semicolon-based
// scan when the parser can't make sense of the content (e.g. partial or
// vendor-specific syntax it doesn't model).
func (s *Session) splitStatements(content string) []string {
	content = strings.TrimSpace(content)
	if statements := s.splitStatementsUsingTiDBParser(content); len(statements) > 0 {
		return statements
	}
	return splitStatementsBySemicolon(content)
}

func (s *Session) splitStatementsUsingTiDBParser(content string) []string {
	stmtNodes, _, err := s.parser.Parse(content, "", "")
	if err != nil || len(stmtNodes) == 0 {
		return nil
	}

	statements := make([]string, 0, len(stmtNodes))
	for _, node := range stmtNodes {
		if node == nil {
			continue
		}
		var sb strings.Builder
		ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
		if restoreErr := node.Restore(ctx); restoreErr != nil {
			continue
		}
		stmt := strings.TrimSpace(sb.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	if len(statements) == 0 {
		return nil
	}
	return statements
}

func splitStatementsBySemicolon(content string) []string {
	var statements []string
	var current strings.Builder

	for line := range strings.SplitSeq(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || trimmed == "" {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}
	return statements
}
