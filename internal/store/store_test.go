package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzafarm/datasmith/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadListDeleteCred(t *testing.T) {
	s := openTestStore(t)

	creds := core.DbCreds{Name: "local", Host: "127.0.0.1", Port: 3306, User: "root", Password: "hunter2", Dialect: core.DialectMySQL}
	id, err := s.SaveCred(creds)
	require.NoError(t, err)
	assert.NotZero(t, id)

	loaded, err := s.LoadCred("local", "127.0.0.1", 3306, "root", "mysql")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", loaded.Password, "password round-trips through base64 obfuscation")
	assert.Equal(t, core.DialectMySQL, loaded.Dialect)

	list, err := s.ListCreds()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Password, "ListCreds must not leak passwords")

	require.NoError(t, s.DeleteCred("local", "127.0.0.1", 3306, "root", "mysql"))
	_, err = s.LoadCred("local", "127.0.0.1", 3306, "root", "mysql")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveCredUpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	creds := core.DbCreds{Name: "local", Host: "127.0.0.1", Port: 3306, User: "root", Password: "first", Dialect: core.DialectMySQL}

	id1, err := s.SaveCred(creds)
	require.NoError(t, err)

	creds.Password = "second"
	id2, err := s.SaveCred(creds)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	loaded, err := s.LoadCred("local", "127.0.0.1", 3306, "root", "mysql")
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Password)

	list, err := s.ListCreds()
	require.NoError(t, err)
	assert.Len(t, list, 1, "conflicting save must update, not duplicate")
}

func TestLastConnected(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LastConnected()
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.SaveCred(core.DbCreds{Name: "local", Host: "h", Port: 1, User: "u", Password: "p", Dialect: core.DialectMySQL})
	require.NoError(t, err)
	require.NoError(t, s.SetLastConnected(id))

	last, err := s.LastConnected()
	require.NoError(t, err)
	assert.Equal(t, "local", last.Name)
}

func TestSaveTableSpecReplacesPrevious(t *testing.T) {
	s := openTestStore(t)
	dbID, err := s.SaveCred(core.DbCreds{Name: "local", Host: "h", Port: 1, User: "u", Password: "p", Dialect: core.DialectMySQL})
	require.NoError(t, err)

	spec := &core.TableSpec{
		DBID: dbID, Name: "teachers", NoOfEntries: 50, PageSize: 25,
		Columns: []core.ColumnSpec{
			{Name: "full_name", Type: core.GeneratorFaker, Generator: "name"},
		},
	}
	require.NoError(t, s.SaveTableSpec(spec))

	loaded, err := s.LoadTableSpec(dbID, "teachers")
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.NoOfEntries)
	require.Len(t, loaded.Columns, 1)
	assert.Equal(t, "name", loaded.Columns[0].Generator)

	spec.Columns = []core.ColumnSpec{
		{Name: "department", Type: core.GeneratorRegex, Generator: "^CS$"},
	}
	require.NoError(t, s.SaveTableSpec(spec))

	reloaded, err := s.LoadTableSpec(dbID, "teachers")
	require.NoError(t, err)
	require.Len(t, reloaded.Columns, 1, "saving must replace, not append, the previous spec")
	assert.Equal(t, "department", reloaded.Columns[0].Name)
}

func TestUsageStatsRecordAndReset(t *testing.T) {
	s := openTestStore(t)
	dbID, err := s.SaveCred(core.DbCreds{Name: "local", Host: "h", Port: 1, User: "u", Password: "p", Dialect: core.DialectMySQL})
	require.NoError(t, err)

	require.NoError(t, s.RecordUsage(core.UsageStat{DBID: dbID, TableName: "teachers", NewRows: 5, LastAccessed: 100}))
	stats, err := s.UsageStats(dbID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 5, stats[0].NewRows)

	require.NoError(t, s.ResetUsage(dbID))
	stats, err = s.UsageStats(dbID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 0, stats[0].NewRows)
}
