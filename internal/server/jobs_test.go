package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzafarm/datasmith/internal/core"
)

func TestGenJobProgressAndDone(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	job := newGenJob("job-1", cancel)

	assert.True(t, job.isActive())

	job.reportProgress(3, 10, "full_name")
	snap := job.snapshot()
	assert.Equal(t, jobRunning, snap.status)
	assert.Equal(t, 3, snap.row)
	assert.Equal(t, 10, snap.total)
	assert.Equal(t, "full_name", snap.column)

	packet := &core.TablePacket{ID: "p1"}
	spec := &core.TableSpec{Name: "teachers"}
	job.finish(spec, packet, nil)

	snap = job.snapshot()
	assert.Equal(t, jobDone, snap.status)
	assert.False(t, job.isActive())
	assert.Equal(t, "p1", snap.packet.ID)
}

func TestGenJobFailure(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	job := newGenJob("job-2", cancel)

	job.finish(nil, nil, fmt.Errorf("boom"))

	snap := job.snapshot()
	assert.Equal(t, jobFailed, snap.status)
	assert.EqualError(t, snap.err, "boom")
	assert.False(t, job.isActive())
}
