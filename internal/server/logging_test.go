package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLogSQLWriteReadClear(t *testing.T) {
	a, err := newActivityLog(t.TempDir())
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.useDatabase("teachers_db"))
	a.logSQL("SELECT 1")
	a.logSQL("SELECT 2")

	lines, err := a.readSQL(200)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "SELECT 1")
	assert.Contains(t, lines[1], "SELECT 2")

	require.NoError(t, a.clearSQL())
	lines, err = a.readSQL(200)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestActivityLogReadRespectsLineLimit(t *testing.T) {
	a, err := newActivityLog(t.TempDir())
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.useDatabase("db"))
	for i := 0; i < 5; i++ {
		a.logSQL("stmt")
	}

	lines, err := a.readSQL(2)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestActivityLogReadWithNoDatabaseSelected(t *testing.T) {
	a, err := newActivityLog(t.TempDir())
	require.NoError(t, err)
	defer a.close()

	lines, err := a.readSQL(200)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
