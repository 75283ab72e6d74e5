package store

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mzafarm/datasmith/internal/core"
)

// ErrNotFound is returned when a lookup by key finds no matching row.
var ErrNotFound = errors.New("store: not found")

// encodePassword obfuscates (not encrypts) a password as base64 of its
// UTF-8 bytes, per spec.md §3/§6 and original_source's
// DbCreds._password property.
func encodePassword(plain string) string {
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

func decodePassword(encoded string) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Pre-existing plaintext rows (or corruption) fail open rather than
		// losing the credential entirely; the caller still gets a usable,
		// if unexpected, password string.
		return encoded
	}
	return string(raw)
}

// SaveCred inserts creds, or updates the existing row sharing its unique
// (name, host, port, user, dialect) key, returning the assigned id.
func (s *Store) SaveCred(creds core.DbCreds) (int64, error) {
	encoded := encodePassword(creds.Password)

	_, err := s.db.Exec(`
		INSERT INTO db_creds (name, host, port, user, password, dialect)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, host, port, user, dialect)
		DO UPDATE SET password = excluded.password
	`, creds.Name, creds.Host, creds.Port, creds.User, encoded, string(creds.Dialect))
	if err != nil {
		return 0, fmt.Errorf("store: saving credential: %w", err)
	}

	// ON CONFLICT DO UPDATE leaves LastInsertId at whatever row the
	// connection inserted last, so look the id up by key explicitly.
	return s.credID(creds.Name, creds.Host, creds.Port, creds.User, string(creds.Dialect))
}

func (s *Store) credID(name, host string, port int, user, dialect string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		SELECT id FROM db_creds WHERE name = ? AND host = ? AND port = ? AND user = ? AND dialect = ?
	`, name, host, port, user, dialect).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: looking up saved credential id: %w", err)
	}
	return id, nil
}

// LoadCred looks up a saved credential by its (name, host, port, user,
// dialect) key, backing set_db_reconnect.
func (s *Store) LoadCred(name, host string, port int, user, dialect string) (core.DbCreds, error) {
	var c core.DbCreds
	var encodedPassword, dialectStr string
	err := s.db.QueryRow(`
		SELECT id, name, host, port, user, password, dialect
		FROM db_creds WHERE name = ? AND host = ? AND port = ? AND user = ? AND dialect = ?
	`, name, host, port, user, dialect).Scan(&c.ID, &c.Name, &c.Host, &c.Port, &c.User, &encodedPassword, &dialectStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DbCreds{}, ErrNotFound
	}
	if err != nil {
		return core.DbCreds{}, fmt.Errorf("store: loading credential: %w", err)
	}
	c.Password = decodePassword(encodedPassword)
	c.Dialect = core.Dialect(dialectStr)
	return c, nil
}

// LoadCredByID looks up a saved credential by its assigned id, backing
// get_db_last_connected.
func (s *Store) LoadCredByID(id int64) (core.DbCreds, error) {
	var c core.DbCreds
	var encodedPassword, dialectStr string
	err := s.db.QueryRow(`
		SELECT id, name, host, port, user, password, dialect FROM db_creds WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Host, &c.Port, &c.User, &encodedPassword, &dialectStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DbCreds{}, ErrNotFound
	}
	if err != nil {
		return core.DbCreds{}, fmt.Errorf("store: loading credential by id: %w", err)
	}
	c.Password = decodePassword(encodedPassword)
	c.Dialect = core.Dialect(dialectStr)
	return c, nil
}

// ListCreds returns every saved credential with its password cleared,
// backing get_pref_connections.
func (s *Store) ListCreds() ([]core.DbCreds, error) {
	rows, err := s.db.Query(`SELECT id, name, host, port, user, dialect FROM db_creds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: listing credentials: %w", err)
	}
	defer rows.Close()

	var creds []core.DbCreds
	for rows.Next() {
		var c core.DbCreds
		var dialectStr string
		if err := rows.Scan(&c.ID, &c.Name, &c.Host, &c.Port, &c.User, &dialectStr); err != nil {
			return nil, err
		}
		c.Dialect = core.Dialect(dialectStr)
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// DeleteCred removes the credential matching the given key, backing
// set_pref_delete.
func (s *Store) DeleteCred(name, host string, port int, user, dialect string) error {
	_, err := s.db.Exec(`
		DELETE FROM db_creds WHERE name = ? AND host = ? AND port = ? AND user = ? AND dialect = ?
	`, name, host, port, user, dialect)
	if err != nil {
		return fmt.Errorf("store: deleting credential: %w", err)
	}
	return nil
}

// SetLastConnected records id as the most recently connected credential,
// backing get_db_last_connected's reconnect-on-most-recent behavior.
func (s *Store) SetLastConnected(id int64) error {
	_, err := s.db.Exec(`
		INSERT INTO server_state (key, value) VALUES ('last_connected_id', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, fmt.Sprint(id))
	if err != nil {
		return fmt.Errorf("store: recording last-connected credential: %w", err)
	}
	return nil
}

// LastConnected returns the most recently connected credential, if any.
func (s *Store) LastConnected() (core.DbCreds, error) {
	var idStr string
	err := s.db.QueryRow(`SELECT value FROM server_state WHERE key = 'last_connected_id'`).Scan(&idStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DbCreds{}, ErrNotFound
	}
	if err != nil {
		return core.DbCreds{}, fmt.Errorf("store: reading last-connected marker: %w", err)
	}

	var id int64
	if _, err := fmt.Sscan(idStr, &id); err != nil {
		return core.DbCreds{}, fmt.Errorf("store: parsing last-connected marker: %w", err)
	}
	return s.LoadCredByID(id)
}
