package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/mzafarm/datasmith/internal/config"
	"github.com/mzafarm/datasmith/internal/core"
	"github.com/mzafarm/datasmith/internal/depsort"
	"github.com/mzafarm/datasmith/internal/introspect"
	"github.com/mzafarm/datasmith/internal/populate"
	"github.com/mzafarm/datasmith/internal/session"
	"github.com/mzafarm/datasmith/internal/store"
)

// Server is the Command Server: it owns one Database Session, one
// Populator, and at most one background generation job at a time, all
// behind a single mutex since the dispatch loop itself is single-threaded
// per spec.md §5 ("single-threaded for request decoding and dispatch").
type Server struct {
	st  *store.Store
	cfg config.Config
	log *activityLog

	mu        sync.Mutex
	sess      *session.Session
	dbID      int64
	populator *populate.Populator
	insp      introspect.Inspector
	job       *genJob
}

// New returns a Server backed by st for persisted state and cfg for
// runtime defaults, logging activity under dataDir (see spec.md §6's
// <data_dir>/logs/ layout).
func New(st *store.Store, cfg config.Config, dataDir string) (*Server, error) {
	activity, err := newActivityLog(dataDir)
	if err != nil {
		return nil, err
	}
	return &Server{st: st, cfg: cfg, log: activity}, nil
}

// Close releases the server's open resources: any live session and its log
// files.
func (s *Server) Close() error {
	s.clearConnected()
	return s.log.close()
}

// Listen runs the line-delimited JSON request/response loop over in/out
// until an "exit" line is read or in reaches EOF, per spec.md §4.5.
func (s *Server) Listen(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	w := bufio.NewWriter(out)
	defer w.Flush()

	s.log.logRunner("server started")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			s.log.logRunner("received exit")
			writeResponse(w, Response{Status: "ok", Payload: "exiting..."})
			return nil
		}

		var req Request
		var resp Response
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			resp = Response{Status: "error", Error: fmt.Sprintf("invalid request: %v", err)}
		} else {
			resp = s.dispatch(req)
			resp.ID = req.ID
		}
		writeResponse(w, resp)
	}
	return scanner.Err()
}

func writeResponse(w *bufio.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{Status: "error", Error: "server: failed to encode response"})
	}
	_, _ = w.Write(data)
	_ = w.WriteByte('\n')
	_ = w.Flush()
}

// cmdEntry binds one command's connection precondition to its handler.
type cmdEntry struct {
	requiresConn bool
	fn           func(*Server, map[string]any) (status string, payload any, err error)
}

// dispatch normalizes the body, checks preconditions, and invokes the
// handler, recovering from any panic into an error response carrying a
// stack trace — the "Unexpected exception" branch of spec.md §7's error
// taxonomy; every other error path returns without a traceback.
func (s *Server) dispatch(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Response{Status: "error", Error: fmt.Sprintf("%v", r), Traceback: string(debug.Stack())}
		}
	}()

	entry, ok := commandTable[req.Kind]
	if !ok {
		return Response{Status: "error", Error: fmt.Sprintf("Unknown command: %s", req.Kind)}
	}

	body, err := normalizeBody(req.Body)
	if err != nil {
		return Response{Status: "error", Error: err.Error()}
	}

	if entry.requiresConn && !s.connected() {
		return Response{Status: "error", Error: errConnectionRequired.Error()}
	}

	status, payload, err := entry.fn(s, body)
	if err != nil {
		return Response{Status: "error", Error: err.Error()}
	}
	if status == "" {
		status = "ok"
	}
	return Response{Status: status, Payload: payload}
}

func (s *Server) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil
}

// connectedState returns a consistent snapshot of the active session,
// its db_id, populator, and inspector.
func (s *Server) connectedState() (*session.Session, int64, *populate.Populator, introspect.Inspector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess, s.dbID, s.populator, s.insp, s.sess != nil
}

// setConnected installs sess as the active session, replacing the
// Populator and Inspector to match its dialect.
func (s *Server) setConnected(sess *session.Session, dbID int64) error {
	insp, err := introspect.New(sess.Creds().Dialect)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.dbID = dbID
	s.populator = populate.New(sess)
	s.insp = insp
	return nil
}

// clearConnected tears down the active session and any in-flight
// generation job, per set_db_disconnect's "tears down connection, rolls
// back, resets usage ledger" (Session.Close itself performs the
// rollback and in-memory reset; see internal/session). The persisted
// usage_stats rows for the session's db_id are zeroed here as well.
func (s *Server) clearConnected() {
	s.mu.Lock()
	sess := s.sess
	dbID := s.dbID
	job := s.job
	s.sess = nil
	s.dbID = 0
	s.populator = nil
	s.insp = nil
	s.job = nil
	s.mu.Unlock()

	if job != nil && job.cancel != nil {
		job.cancel()
	}
	if sess != nil {
		_ = sess.Close()
		_ = s.st.ResetUsage(dbID)
	}
}

func (s *Server) currentJob() *genJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// tableRowInfo is the per-table view get_db_tables joins into its response.
type tableRowInfo struct {
	Rows    int64
	Parents []string
}

// buildTableRowsAndParents and buildSortedOrder are run as the two
// parallel workers get_db_tables fans out into, per spec.md §5 —
// grounded on the teacher's cmd/smf/main.go parseSchemas two-goroutine-
// join pattern, and on original_source/core/runner.py's _handle_tables,
// which likewise runs its row/parent lookup and its sort independently on
// two threads rather than sharing one introspection pass.
func buildTableRowsAndParents(ctx context.Context, insp introspect.Inspector, sess *session.Session, names []string) (map[string]tableRowInfo, error) {
	result := make(map[string]tableRowInfo, len(names))
	for _, name := range names {
		meta, err := insp.TableMetadata(ctx, sess.DB(), name)
		if err != nil {
			return nil, fmt.Errorf("server: introspecting %q: %w", name, err)
		}
		rows, err := insp.RowCount(ctx, sess.DB(), name)
		if err != nil {
			return nil, fmt.Errorf("server: counting rows in %q: %w", name, err)
		}
		result[name] = tableRowInfo{Rows: rows, Parents: meta.Parents}
	}
	return result, nil
}

func buildSortedOrder(ctx context.Context, insp introspect.Inspector, sess *session.Session, names []string) ([]string, error) {
	metas := make([]*core.TableMetadata, 0, len(names))
	for _, name := range names {
		meta, err := insp.TableMetadata(ctx, sess.DB(), name)
		if err != nil {
			return nil, fmt.Errorf("server: introspecting %q: %w", name, err)
		}
		metas = append(metas, meta)
	}
	return depsort.Sort(metas), nil
}
