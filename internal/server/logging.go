package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// activityLog owns the server's two log surfaces: a single runner.log for
// server-lifetime activity, and a per-database SQL log under
// <data_dir>/logs/<db_name>.sql.log, per spec.md §6. Both are plain
// timestamped lines (log.New(w, "", log.LstdFlags)) written to *os.File
// handles this type opens itself, matching the teacher's
// Applier.printf/println plain-fmt logging idiom rather than a
// structured-logging library — see SPEC_FULL.md's Ambient Stack section.
type activityLog struct {
	mu         sync.Mutex
	logsDir    string
	runnerFile *os.File
	runner     *log.Logger
	sqlFile    *os.File
	sqlLogger  *log.Logger
	sqlDBName  string
}

// newActivityLog opens runner.log under dataDir and ensures dataDir/logs
// exists for per-database SQL logs.
func newActivityLog(dataDir string) (*activityLog, error) {
	logsDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("server: creating logs directory: %w", err)
	}

	runnerFile, err := os.OpenFile(filepath.Join(dataDir, "runner.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("server: opening runner.log: %w", err)
	}

	return &activityLog{
		logsDir:    logsDir,
		runnerFile: runnerFile,
		runner:     log.New(runnerFile, "", log.LstdFlags),
	}, nil
}

// logRunner writes one line to runner.log.
func (a *activityLog) logRunner(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runner.Printf(format, args...)
}

// useDatabase switches the active SQL log file to dbName, opening it unless
// it is already the active one. Handlers call it after each successful
// connect or reconnect.
func (a *activityLog) useDatabase(dbName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sqlFile != nil && a.sqlDBName == dbName {
		return nil
	}
	if a.sqlFile != nil {
		_ = a.sqlFile.Close()
		a.sqlFile = nil
	}

	f, err := os.OpenFile(filepath.Join(a.logsDir, dbName+".sql.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("server: opening SQL log for %q: %w", dbName, err)
	}
	a.sqlFile = f
	a.sqlDBName = dbName
	a.sqlLogger = log.New(f, "", log.LstdFlags)
	return nil
}

// logSQL appends stmt to the active database's SQL log, a no-op if no
// database is selected yet.
func (a *activityLog) logSQL(stmt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sqlLogger != nil {
		a.sqlLogger.Println(stmt)
	}
}

// readSQL returns up to the last n lines of the active database's SQL log.
func (a *activityLog) readSQL(n int) ([]string, error) {
	a.mu.Lock()
	path := ""
	if a.sqlFile != nil {
		path = a.sqlFile.Name()
	}
	a.mu.Unlock()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("server: reading SQL log: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// clearSQL truncates the active database's SQL log.
func (a *activityLog) clearSQL() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sqlFile == nil {
		return nil
	}
	if err := a.sqlFile.Truncate(0); err != nil {
		return fmt.Errorf("server: clearing SQL log: %w", err)
	}
	_, err := a.sqlFile.Seek(0, 0)
	return err
}

func (a *activityLog) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sqlFile != nil {
		_ = a.sqlFile.Close()
	}
	return a.runnerFile.Close()
}
