package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerGroupRunsWorkers(t *testing.T) {
	var g WorkerGroup
	var ran atomic.Int32

	require.True(t, g.Go(func() { ran.Add(1) }))
	require.True(t, g.Go(func() { ran.Add(1) }))

	require.NoError(t, g.StopAndWait(context.Background()))
	assert.Equal(t, int32(2), ran.Load())
}

func TestWorkerGroupRejectsAfterStop(t *testing.T) {
	var g WorkerGroup
	require.NoError(t, g.StopAndWait(context.Background()))
	assert.False(t, g.Go(func() {}))
	assert.False(t, g.Go(nil))
}

func TestWorkerGroupStopHonorsContext(t *testing.T) {
	var g WorkerGroup
	release := make(chan struct{})
	g.Go(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.StopAndWait(ctx)
	assert.Error(t, err)

	close(release)
}
