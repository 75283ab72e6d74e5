package server

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzafarm/datasmith/internal/config"
	"github.com/mzafarm/datasmith/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "config.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s, err := New(st, config.Defaults(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDispatchPing(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(Request{Kind: "ping"})
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "pong", resp.Payload)
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(Request{Kind: "does_not_exist"})
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Unknown command: does_not_exist", resp.Error)
}

func TestDispatchRequiresConnection(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(Request{Kind: "get_db_info"})
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, errConnectionRequired.Error(), resp.Error)
}

func TestDispatchGetGenMethodsNoConnectionNeeded(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(Request{Kind: "get_gen_methods"})
	assert.Equal(t, "ok", resp.Status)
	methods, ok := resp.Payload.([]string)
	require.True(t, ok)
	assert.Contains(t, methods, "name")
	assert.Contains(t, methods, "email")
}

func TestDispatchGetSQLBannerWithoutConnection(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(Request{Kind: "get_sql_banner"})
	assert.Equal(t, "ok", resp.Status)
	payload, ok := resp.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sql", payload["prompt"])
}

func TestDispatchSetDbConnectMissingFields(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(Request{Kind: "set_db_connect", Body: json.RawMessage(`{"host":"localhost"}`)})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "missing required parameters")
}

func TestDispatchPollGenStatusIdle(t *testing.T) {
	s := newTestServer(t)
	resp := s.dispatch(Request{Kind: "poll_gen_status"})
	assert.Equal(t, "ok", resp.Status)
	payload, ok := resp.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", payload["status"])
}

func TestListenEchoesIDAndExits(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader("{\"id\":\"abc\",\"kind\":\"ping\"}\n\nexit\n")
	var out strings.Builder

	err := s.Listen(in, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var pingResp Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &pingResp))
	assert.Equal(t, "abc", pingResp.ID)
	assert.Equal(t, "pong", pingResp.Payload)

	var exitResp Response
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &exitResp))
	assert.Equal(t, "ok", exitResp.Status)
}

func TestListenReportsInvalidJSON(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader("not json\nexit\n")
	var out strings.Builder

	require.NoError(t, s.Listen(in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "invalid request")
}
