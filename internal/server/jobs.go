package server

import (
	"context"
	"sync"

	"github.com/mzafarm/datasmith/internal/core"
)

// jobStatus is the lifecycle state of a background generation job.
type jobStatus string

const (
	jobRunning jobStatus = "running"
	jobDone    jobStatus = "done"
	jobFailed  jobStatus = "error"
)

// genJob tracks one background generation job. Progress is shared via a
// mutex-guarded struct rather than spec.md §5's shared-memory dictionary —
// the same {status, row, total, column} shape, a different transport,
// since a goroutine already gives the crash/leak isolation spec.md wants
// a subprocess for.
type genJob struct {
	id     string
	cancel context.CancelFunc

	mu     sync.Mutex
	status jobStatus
	row    int
	total  int
	column string
	spec   *core.TableSpec
	packet *core.TablePacket
	err    error
}

func newGenJob(id string, cancel context.CancelFunc) *genJob {
	return &genJob{id: id, cancel: cancel, status: jobRunning}
}

// reportProgress implements populate.ProgressFunc.
func (j *genJob) reportProgress(row, total int, column string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.row, j.total, j.column = row, total, column
}

func (j *genJob) finish(spec *core.TableSpec, packet *core.TablePacket, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		j.status = jobFailed
		j.err = err
		return
	}
	j.spec = spec
	j.packet = packet
	j.status = jobDone
}

type jobSnapshot struct {
	status jobStatus
	row    int
	total  int
	column string
	spec   *core.TableSpec
	packet *core.TablePacket
	err    error
}

func (j *genJob) snapshot() jobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return jobSnapshot{
		status: j.status, row: j.row, total: j.total, column: j.column,
		spec: j.spec, packet: j.packet, err: j.err,
	}
}

func (j *genJob) isActive() bool {
	snap := j.snapshot()
	return snap.status == jobRunning
}
