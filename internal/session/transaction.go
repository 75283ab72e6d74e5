package session

import (
	"context"
	"fmt"
)

// BeginTx opens a transaction for subsequent inserts, per spec.md §4.5's
// set_db_insert/set_db_commit/set_db_rollback triad. A session holds at
// most one open transaction at a time.
func (s *Session) BeginTx(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return fmt.Errorf("session: a transaction is already open")
	}
	return s.beginTxLocked(ctx)
}

// beginTxLocked opens the session's transaction if one isn't already open.
// Callers must hold s.mu.
func (s *Session) beginTxLocked(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: beginning transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction and resets the uncommitted-write
// counter and usage ledger, per set_db_commit and spec.md §3's lifecycle
// note ("reset on commit, rollback, and disconnect").
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return fmt.Errorf("session: no open transaction to commit")
	}
	err := s.tx.Commit()
	s.tx = nil
	s.uncommitted = 0
	for _, st := range s.usage {
		st.NewRows = 0
	}
	return err
}

// Rollback discards the open transaction and the pending usage-ledger
// increments that went with it, per set_db_rollback.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return fmt.Errorf("session: no open transaction to roll back")
	}
	err := s.tx.Rollback()
	s.tx = nil
	s.uncommitted = 0
	for _, st := range s.usage {
		st.NewRows = 0
	}
	return err
}
