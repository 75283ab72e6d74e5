package store

import (
	"fmt"

	"github.com/mzafarm/datasmith/internal/core"
)

// RecordUsage write-throughs a session's in-memory usage-ledger entry
// (internal/session owns the authoritative copy used during a live
// command-server process) so the ledger survives a process restart.
func (s *Store) RecordUsage(stat core.UsageStat) error {
	_, err := s.db.Exec(`
		INSERT INTO usage_stats (db_id, table_name, new_rows, last_accessed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(db_id, table_name) DO UPDATE SET
			new_rows = excluded.new_rows, last_accessed = excluded.last_accessed
	`, stat.DBID, stat.TableName, stat.NewRows, stat.LastAccessed)
	if err != nil {
		return fmt.Errorf("store: recording usage stat: %w", err)
	}
	return nil
}

// ResetUsage zeroes every usage_stats row for dbID, backing commit/
// rollback/disconnect's ledger reset.
func (s *Store) ResetUsage(dbID int64) error {
	_, err := s.db.Exec(`UPDATE usage_stats SET new_rows = 0 WHERE db_id = ?`, dbID)
	if err != nil {
		return fmt.Errorf("store: resetting usage ledger: %w", err)
	}
	return nil
}

// UsageStats returns the persisted usage ledger for dbID.
func (s *Store) UsageStats(dbID int64) ([]core.UsageStat, error) {
	rows, err := s.db.Query(`
		SELECT db_id, table_name, new_rows, last_accessed FROM usage_stats WHERE db_id = ?
	`, dbID)
	if err != nil {
		return nil, fmt.Errorf("store: loading usage ledger: %w", err)
	}
	defer rows.Close()

	var stats []core.UsageStat
	for rows.Next() {
		var st core.UsageStat
		if err := rows.Scan(&st.DBID, &st.TableName, &st.NewRows, &st.LastAccessed); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
