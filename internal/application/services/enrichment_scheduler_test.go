package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type blockingProcessor struct {
	calls    int32
	cleanups int32
	started  chan struct{}
	release  chan struct{}
}

func newBlockingProcessor() *blockingProcessor {
	return &blockingProcessor{started: make(chan struct{}, 4), release: make(chan struct{})}
}

func (p *blockingProcessor) ProcessQueue(ctx context.Context, limit int) (*QueueSummary, error) {
	atomic.AddInt32(&p.calls, 1)
	p.started <- struct{}{}
	select {
	case <-p.release:
		return &QueueSummary{Pending: 1, Processed: 1}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *blockingProcessor) CleanupProcessed(context.Context, time.Duration) (int64, error) {
	atomic.AddInt32(&p.cleanups, 1)
	return 0, nil
}

func TestNewEnrichmentScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewEnrichmentScheduler(newBlockingProcessor(), "every now and then", 10, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid enrichment schedule")
}

func TestEnrichmentScheduler_StartStopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, err := NewEnrichmentScheduler(newBlockingProcessor(), "*/5 * * * *", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultQueueBatch, s.batchSize)

	s.Stop()
	assert.False(t, s.Running())

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestEnrichmentScheduler_SkipsOverlappingRuns(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newBlockingProcessor()
	s, err := NewEnrichmentScheduler(p, "@every 1h", 10, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.tick()
		close(done)
	}()
	<-p.started

	s.tick()
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls), "second tick is skipped while the first runs")

	close(p.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not finish")
	}

	s.tick()
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.calls))
}

func TestEnrichmentScheduler_StopCancelsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newBlockingProcessor()
	s, err := NewEnrichmentScheduler(p, "@every 1h", 10, nil)
	require.NoError(t, err)
	s.Start()

	done := make(chan struct{})
	go func() {
		s.processQueue()
		close(done)
	}()
	<-p.started

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run was not cancelled by Stop")
	}
}

func TestEnrichmentScheduler_Cleanup(t *testing.T) {
	p := newBlockingProcessor()
	s, err := NewEnrichmentScheduler(p, "@hourly", 10, nil)
	require.NoError(t, err)
	s.cleanup()
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.cleanups))
}
