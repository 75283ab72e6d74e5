package session

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/mzafarm/datasmith/internal/core"
)

func TestBuildInsertStatement(t *testing.T) {
	v1, v2 := "alice", "bob"
	query, args := buildInsertStatement("teachers", []string{"name", "department"}, [][]*string{
		{&v1, nil},
		{&v2, &v1},
	})

	assert.Equal(t, "INSERT INTO `teachers` (`name`, `department`) VALUES (?, ?), (?, ?)", query)
	require.Len(t, args, 4)
	assert.Equal(t, "alice", args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, "bob", args[2])
	assert.Equal(t, "alice", args[3])
}

func TestExportSQL_EscapesQuotesAndNulls(t *testing.T) {
	v := "O'Brien"
	n := "42"
	packet := &core.TablePacket{
		Columns: []string{"name", "age"},
		Entries: [][]*string{{&v, &n}, {nil, nil}},
	}

	s := &Session{}
	out := s.ExportSQL("teachers", packet)
	assert.Contains(t, out, "-- Exported at ")
	assert.Contains(t, out, "'O\\'Brien'")
	assert.Contains(t, out, "'42'")
	assert.Contains(t, out, "(NULL, NULL)")
}

type testMySQLContainer struct {
	container *mysql.MySQLContainer
	host      string
	port      int
}

func TestSessionConnectIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupMySQL(t)
	ctx := context.Background()

	t.Run("successful connection detects dialect", func(t *testing.T) {
		sess, err := Connect(ctx, core.DbCreds{Host: tc.host, Port: tc.port, User: "root", Password: "testpass"})
		require.NoError(t, err)
		defer sess.Close()
		assert.Equal(t, core.DialectMySQL, sess.Creds().Dialect)
	})

	t.Run("invalid credentials fail", func(t *testing.T) {
		_, err := Connect(ctx, core.DbCreds{Host: tc.host, Port: tc.port, User: "root", Password: "wrong"})
		assert.Error(t, err)
	})

	t.Run("insert, commit, and read back", func(t *testing.T) {
		sess, err := Connect(ctx, core.DbCreds{Host: tc.host, Port: tc.port, User: "root", Password: "testpass"})
		require.NoError(t, err)
		defer sess.Close()

		_, _, err = sess.RunQuery(ctx, "CREATE TABLE testdb.demo (id INT PRIMARY KEY AUTO_INCREMENT, name VARCHAR(50))")
		require.NoError(t, err)

		require.NoError(t, sess.BeginTx(ctx))
		v := "ada"
		require.NoError(t, sess.Insert(ctx, "testdb.demo", &core.TablePacket{
			Columns: []string{"name"},
			Entries: [][]*string{{&v}},
		}))
		assert.Equal(t, 1, sess.UncommittedCount())
		require.NoError(t, sess.Commit())
		assert.Equal(t, 0, sess.UncommittedCount())

		values, err := sess.ExistingValues(ctx, "testdb.demo", "name")
		require.NoError(t, err)
		assert.Equal(t, []string{"ada"}, values)
	})
}

func setupMySQL(t *testing.T) *testMySQLContainer {
	t.Helper()
	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(mysqlContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := mysqlContainer.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err, "failed to open direct DB connection")
	require.NoError(t, db.PingContext(ctx), "failed to ping database")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	host, err := mysqlContainer.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlContainer.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	return &testMySQLContainer{container: mysqlContainer, host: host, port: port.Int()}
}
