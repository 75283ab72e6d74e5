package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mzafarm/datasmith/internal/core"
	"github.com/mzafarm/datasmith/internal/genregistry"
	"github.com/mzafarm/datasmith/internal/session"
	"github.com/mzafarm/datasmith/internal/store"
)

// commandTable is the full dispatch table of spec.md §4.5's command set.
var commandTable = map[string]cmdEntry{
	"ping":                  {fn: (*Server).hPing},
	"get_db_info":           {requiresConn: true, fn: (*Server).hGetDbInfo},
	"get_gen_methods":       {fn: (*Server).hGetGenMethods},
	"get_db_last_connected": {fn: (*Server).hGetDbLastConnected},
	"set_db_connect":        {fn: (*Server).hSetDbConnect},
	"set_db_reconnect":      {fn: (*Server).hSetDbReconnect},
	"get_pref_connections":  {fn: (*Server).hGetPrefConnections},
	"set_pref_delete":       {fn: (*Server).hSetPrefDelete},
	"set_db_disconnect":     {fn: (*Server).hSetDbDisconnect},
	"get_db_tables":         {requiresConn: true, fn: (*Server).hGetDbTables},
	"get_db_table":          {requiresConn: true, fn: (*Server).hGetDbTable},
	"get_gen_packets":       {requiresConn: true, fn: (*Server).hGetGenPackets},
	"poll_gen_status":       {fn: (*Server).hPollGenStatus},
	"get_gen_packet":        {requiresConn: true, fn: (*Server).hGetGenPacket},
	"clear_gen_packets":     {fn: (*Server).hClearGenPackets},
	"get_pref_spec":         {requiresConn: true, fn: (*Server).hGetPrefSpec},
	"get_sql_banner":        {fn: (*Server).hGetSQLBanner},
	"run_sql_query":         {requiresConn: true, fn: (*Server).hRunSQLQuery},
	"get_logs_read":         {fn: (*Server).hGetLogsRead},
	"set_logs_clear":        {fn: (*Server).hSetLogsClear},
	"set_db_insert":         {requiresConn: true, fn: (*Server).hSetDbInsert},
	"set_db_export":         {requiresConn: true, fn: (*Server).hSetDbExport},
	"set_db_commit":         {fn: (*Server).hSetDbCommit},
	"set_db_rollback":       {fn: (*Server).hSetDbRollback},
	"get_pref_rows":         {requiresConn: true, fn: (*Server).hGetPrefRows},
}

func (s *Server) hPing(_ map[string]any) (string, any, error) {
	return "ok", "pong", nil
}

// sessionInfo is the payload shape of get_db_info and every successful
// connect/reconnect handler.
type sessionInfo struct {
	DBID        int64  `json:"dbId"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	Dialect     string `json:"dialect"`
	Version     string `json:"version"`
	Uncommitted int    `json:"uncommitted"`
}

func buildSessionInfo(dbID int64, sess *session.Session) sessionInfo {
	creds := sess.Creds()
	return sessionInfo{
		DBID: dbID, Name: creds.Name, Host: creds.Host, Port: creds.Port,
		User: creds.User, Dialect: string(creds.Dialect), Version: sess.Version(),
		Uncommitted: sess.UncommittedCount(),
	}
}

func (s *Server) hGetDbInfo(_ map[string]any) (string, any, error) {
	sess, dbID, _, _, _ := s.connectedState()
	return "ok", buildSessionInfo(dbID, sess), nil
}

func (s *Server) hGetGenMethods(_ map[string]any) (string, any, error) {
	return "ok", genregistry.FakerMethods(), nil
}

func (s *Server) hGetDbLastConnected(_ map[string]any) (string, any, error) {
	creds, err := s.st.LastConnected()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, fmt.Errorf("no previously connected database found")
		}
		return "", nil, err
	}

	sess, err := session.Connect(context.Background(), creds)
	if err != nil {
		s.clearConnected()
		return "", nil, fmt.Errorf("reconnecting to %q failed: %w", creds.Name, err)
	}
	if err := s.setConnected(sess, creds.ID); err != nil {
		_ = sess.Close()
		return "", nil, err
	}
	if err := s.log.useDatabase(creds.Name); err != nil {
		return "", nil, err
	}
	_ = s.st.SetLastConnected(creds.ID)
	return "ok", buildSessionInfo(creds.ID, sess), nil
}

func (s *Server) hSetDbConnect(body map[string]any) (string, any, error) {
	if err := requireFields(body, "host", "user", "port", "name", "password"); err != nil {
		return "", nil, err
	}
	port, _ := bodyInt(body, "port")
	creds := core.DbCreds{
		Name: bodyString(body, "name"), Host: bodyString(body, "host"),
		Port: port, User: bodyString(body, "user"), Password: bodyString(body, "password"),
	}

	sess, err := session.Connect(context.Background(), creds)
	if err != nil {
		return "", nil, fmt.Errorf("connection failed: %w", err)
	}

	id, err := s.st.SaveCred(sess.Creds())
	if err != nil {
		_ = sess.Close()
		return "", nil, err
	}
	if err := s.setConnected(sess, id); err != nil {
		_ = sess.Close()
		return "", nil, err
	}
	if err := s.log.useDatabase(sess.Creds().Name); err != nil {
		return "", nil, err
	}
	_ = s.st.SetLastConnected(id)
	return "ok", buildSessionInfo(id, sess), nil
}

func (s *Server) hSetDbReconnect(body map[string]any) (string, any, error) {
	if err := requireFields(body, "name", "host", "port", "user", "dialect"); err != nil {
		return "", nil, err
	}
	port, _ := bodyInt(body, "port")
	creds, err := s.st.LoadCred(bodyString(body, "name"), bodyString(body, "host"), port, bodyString(body, "user"), bodyString(body, "dialect"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, fmt.Errorf("no saved connection matching those credentials")
		}
		return "", nil, err
	}

	sess, err := session.Connect(context.Background(), creds)
	if err != nil {
		return "", nil, fmt.Errorf("reconnecting to %q failed: %w", creds.Name, err)
	}
	if err := s.setConnected(sess, creds.ID); err != nil {
		_ = sess.Close()
		return "", nil, err
	}
	if err := s.log.useDatabase(creds.Name); err != nil {
		return "", nil, err
	}
	_ = s.st.SetLastConnected(creds.ID)
	return "ok", buildSessionInfo(creds.ID, sess), nil
}

func (s *Server) hGetPrefConnections(_ map[string]any) (string, any, error) {
	creds, err := s.st.ListCreds()
	if err != nil {
		return "", nil, err
	}
	return "ok", creds, nil
}

func (s *Server) hSetPrefDelete(body map[string]any) (string, any, error) {
	if err := requireFields(body, "name", "host", "port", "user", "dialect"); err != nil {
		return "", nil, err
	}
	port, _ := bodyInt(body, "port")
	if err := s.st.DeleteCred(bodyString(body, "name"), bodyString(body, "host"), port, bodyString(body, "user"), bodyString(body, "dialect")); err != nil {
		return "", nil, err
	}
	s.clearConnected()
	return "ok", "connection deleted", nil
}

func (s *Server) hSetDbDisconnect(_ map[string]any) (string, any, error) {
	s.clearConnected()
	return "ok", "disconnected", nil
}

func (s *Server) hGetDbTables(_ map[string]any) (string, any, error) {
	sess, _, _, insp, _ := s.connectedState()
	ctx := context.Background()

	names, err := insp.Tables(ctx, sess.DB())
	if err != nil {
		return "", nil, err
	}

	var rowInfo map[string]tableRowInfo
	var sorted []string
	var rowErr, sortErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rowInfo, rowErr = buildTableRowsAndParents(ctx, insp, sess, names)
	}()
	go func() {
		defer wg.Done()
		sorted, sortErr = buildSortedOrder(ctx, insp, sess, names)
	}()
	wg.Wait()

	if rowErr != nil {
		return "", nil, rowErr
	}
	if sortErr != nil {
		return "", nil, sortErr
	}

	type tableRow struct {
		Name    string   `json:"name"`
		Rows    int64    `json:"rows"`
		Parents []string `json:"parents"`
	}
	out := make([]tableRow, 0, len(sorted))
	for _, name := range sorted {
		info := rowInfo[name]
		out = append(out, tableRow{Name: name, Rows: info.Rows, Parents: info.Parents})
	}
	return "ok", out, nil
}

func (s *Server) hGetDbTable(body map[string]any) (string, any, error) {
	if err := requireFields(body, "name"); err != nil {
		return "", nil, err
	}
	sess, _, _, insp, _ := s.connectedState()
	meta, err := insp.TableMetadata(context.Background(), sess.DB(), bodyString(body, "name"))
	if err != nil {
		return "", nil, err
	}
	return "ok", meta, nil
}

func (s *Server) hGetGenPackets(body map[string]any) (string, any, error) {
	spec, err := parseTableSpec(body)
	if err != nil {
		return "", nil, err
	}

	sess, dbID, pop, insp, _ := s.connectedState()
	spec.DBID = dbID

	if job := s.currentJob(); job != nil && job.isActive() {
		return "", nil, fmt.Errorf("a generation job is already active")
	}

	meta, err := insp.TableMetadata(context.Background(), sess.DB(), spec.Name)
	if err != nil {
		return "", nil, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	job := newGenJob(uuid.NewString(), cancel)

	s.mu.Lock()
	s.job = job
	s.mu.Unlock()

	go func() {
		resolved, packet, err := pop.BuildPacket(jobCtx, meta, spec, job.reportProgress)
		if err != nil {
			job.finish(nil, nil, err)
			return
		}
		pop.Cache().Paginate(packet)
		resolved.DBID = dbID
		_ = s.st.SaveTableSpec(resolved)
		job.finish(resolved, packet, nil)
	}()

	return "pending", map[string]any{"job_id": job.id}, nil
}

func (s *Server) hPollGenStatus(_ map[string]any) (string, any, error) {
	job := s.currentJob()
	if job == nil {
		return "ok", map[string]any{"status": "idle"}, nil
	}

	snap := job.snapshot()
	switch snap.status {
	case jobRunning:
		return "pending", map[string]any{"row": snap.row, "total": snap.total, "column": snap.column}, nil
	case jobFailed:
		return "", nil, snap.err
	case jobDone:
		_, _, pop, _, ok := s.connectedState()
		if !ok || pop == nil {
			return "ok", snap.packet, nil
		}
		first, err := pop.Cache().GetPage(snap.packet.ID, intPtr(0))
		if err != nil {
			return "ok", snap.packet, nil
		}
		return "ok", first, nil
	default:
		return "", nil, fmt.Errorf("server: unknown generation job status %q", snap.status)
	}
}

func intPtr(n int) *int { return &n }

func (s *Server) hGetGenPacket(body map[string]any) (string, any, error) {
	if err := requireFields(body, "id"); err != nil {
		return "", nil, err
	}
	_, _, pop, _, _ := s.connectedState()
	page := bodyIntPtr(body, "page")
	packet, err := pop.Cache().GetPage(bodyString(body, "id"), page)
	if err != nil {
		return "", nil, err
	}
	return "ok", packet, nil
}

func (s *Server) hClearGenPackets(_ map[string]any) (string, any, error) {
	s.mu.Lock()
	job := s.job
	pop := s.populator
	s.job = nil
	s.mu.Unlock()

	if job != nil && job.cancel != nil {
		job.cancel()
	}
	if pop != nil {
		pop.Cache().Clear()
	}
	return "ok", "generation cleared", nil
}

func (s *Server) hGetPrefSpec(body map[string]any) (string, any, error) {
	if err := requireFields(body, "name"); err != nil {
		return "", nil, err
	}
	_, dbID, _, _, _ := s.connectedState()
	spec, err := s.st.LoadTableSpec(dbID, bodyString(body, "name"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, fmt.Errorf("no saved spec for table %q", bodyString(body, "name"))
		}
		return "", nil, err
	}
	return "ok", spec, nil
}

func (s *Server) hGetSQLBanner(_ map[string]any) (string, any, error) {
	dialect := ""
	if sess, _, _, _, ok := s.connectedState(); ok {
		dialect = string(sess.Creds().Dialect)
	}
	return "ok", sqlBanner(dialect), nil
}

func (s *Server) hRunSQLQuery(body map[string]any) (string, any, error) {
	if err := requireFields(body, "sql"); err != nil {
		return "", nil, err
	}
	sess, _, _, _, _ := s.connectedState()
	sqlText := bodyString(body, "sql")
	s.log.logSQL(sqlText)

	columns, rows, err := sess.RunQuery(context.Background(), sqlText)
	if err != nil {
		return "", nil, fmt.Errorf("SQL execution failed: %w", err)
	}
	return "ok", formatQueryResult(columns, rows), nil
}

// formatQueryResult renders a result set as a simple tabulated text block,
// backing run_sql_query's "tabulated text result" response per spec.md
// §4.5.
func formatQueryResult(columns []string, rows [][]*string) string {
	if len(columns) == 0 {
		return "Query executed successfully."
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(columns, "\t"))
	sb.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = *v
			}
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *Server) hGetLogsRead(body map[string]any) (string, any, error) {
	lines := bodyIntOr(body, "lines", 200)
	logLines, err := s.log.readSQL(lines)
	if err != nil {
		return "", nil, fmt.Errorf("failed to retrieve logs: %w", err)
	}
	return "ok", logLines, nil
}

func (s *Server) hSetLogsClear(_ map[string]any) (string, any, error) {
	if err := s.log.clearSQL(); err != nil {
		return "", nil, fmt.Errorf("failed to clear logs: %w", err)
	}
	return "ok", "logs cleared", nil
}

func (s *Server) hSetDbInsert(body map[string]any) (string, any, error) {
	if err := requireFields(body, "id", "name"); err != nil {
		return "", nil, err
	}
	sess, dbID, pop, _, _ := s.connectedState()
	table := bodyString(body, "name")

	packet, err := pop.Cache().GetPage(bodyString(body, "id"), nil)
	if err != nil {
		return "", nil, err
	}

	if err := sess.Insert(context.Background(), table, packet); err != nil {
		return "", nil, err
	}

	for _, stat := range sess.UsageStats() {
		stat.DBID = dbID
		_ = s.st.RecordUsage(stat)
	}

	return "ok", map[string]any{"uncommitted": sess.UncommittedCount()}, nil
}

func (s *Server) hSetDbExport(body map[string]any) (string, any, error) {
	if err := requireFields(body, "id", "name", "path"); err != nil {
		return "", nil, err
	}
	sess, _, pop, _, _ := s.connectedState()
	table := bodyString(body, "name")
	path := bodyString(body, "path")

	packet, err := pop.Cache().GetPage(bodyString(body, "id"), nil)
	if err != nil {
		return "", nil, err
	}

	script := sess.ExportSQL(table, packet)
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return "", nil, fmt.Errorf("server: writing export file: %w", err)
	}
	return "ok", fmt.Sprintf("exported to %s", path), nil
}

func (s *Server) hSetDbCommit(_ map[string]any) (string, any, error) {
	sess, dbID, _, _, ok := s.connectedState()
	if !ok {
		return "", nil, errConnectionRequired
	}
	if err := sess.Commit(); err != nil {
		return "", nil, err
	}
	_ = s.st.ResetUsage(dbID)
	return "ok", "committed", nil
}

func (s *Server) hSetDbRollback(_ map[string]any) (string, any, error) {
	sess, dbID, _, _, ok := s.connectedState()
	if !ok {
		return "", nil, errConnectionRequired
	}
	if err := sess.Rollback(); err != nil {
		return "", nil, err
	}
	_ = s.st.ResetUsage(dbID)
	return "ok", "rolled back", nil
}

func (s *Server) hGetPrefRows(_ map[string]any) (string, any, error) {
	sess, _, _, insp, _ := s.connectedState()
	ctx := context.Background()

	names, err := insp.Tables(ctx, sess.DB())
	if err != nil {
		return "", nil, err
	}

	usageByTable := make(map[string]core.UsageStat, len(names))
	for _, stat := range sess.UsageStats() {
		usageByTable[stat.TableName] = stat
	}

	type tableUsage struct {
		TotalRows int64 `json:"totalRows"`
		NewRows   int   `json:"newRows"`
	}
	result := make(map[string]tableUsage, len(names))
	for _, name := range names {
		rows, err := insp.RowCount(ctx, sess.DB(), name)
		if err != nil {
			return "", nil, err
		}
		result[name] = tableUsage{TotalRows: rows, NewRows: usageByTable[name].NewRows}
	}
	return "ok", result, nil
}
