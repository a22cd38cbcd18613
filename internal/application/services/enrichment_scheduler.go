package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/adrata/backend/internal/logging"
)

// Queue worker defaults
const (
	DefaultQueueBatch     = 50
	ProcessedJobRetention = 7 * 24 * time.Hour
	cleanupSchedule       = "@daily"
)

// QueueProcessor drains the enrichment queue. *EnrichmentService implements it.
type QueueProcessor interface {
	ProcessQueue(ctx context.Context, limit int) (*QueueSummary, error)
	CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error)
}

// cronLogger routes robfig/cron's logging through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// EnrichmentScheduler runs the queue worker on a cron schedule. A tick that
// fires while the previous run is still going is skipped.
type EnrichmentScheduler struct {
	cron      *cron.Cron
	processor QueueProcessor
	batchSize int
	entryID   cron.EntryID
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewEnrichmentScheduler validates schedule (standard five-field cron or a
// descriptor such as @every 5m) and registers the queue and cleanup jobs.
func NewEnrichmentScheduler(processor QueueProcessor, schedule string, batchSize int, logger *zap.Logger) (*EnrichmentScheduler, error) {
	logger = logging.OrNop(logger)
	if batchSize < 1 {
		batchSize = DefaultQueueBatch
	}
	cl := cronLogger{sugar: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &EnrichmentScheduler{
		cron:      c,
		processor: processor,
		batchSize: batchSize,
		logger:    logger,
		ctx:       context.Background(),
	}

	id, err := c.AddFunc(schedule, s.processQueue)
	if err != nil {
		return nil, fmt.Errorf("invalid enrichment schedule %q: %w", schedule, err)
	}
	s.entryID = id
	if _, err := c.AddFunc(cleanupSchedule, s.cleanup); err != nil {
		return nil, fmt.Errorf("failed to register queue cleanup: %w", err)
	}
	return s, nil
}

// Start begins running scheduled jobs. Calling it twice is a no-op.
func (s *EnrichmentScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	s.cron.Start()
	s.logger.Info("⏰ Enrichment scheduler started", zap.Int("batch_size", s.batchSize))
}

// Stop cancels in-flight work and waits for running jobs to return.
// Calling it on a stopped scheduler is a no-op.
func (s *EnrichmentScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("⏰ Enrichment scheduler stopped")
}

// Running reports whether the scheduler has been started and not stopped.
func (s *EnrichmentScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// tick runs the queue job through the same wrappers a scheduled run uses.
func (s *EnrichmentScheduler) tick() {
	s.cron.Entry(s.entryID).WrappedJob.Run()
}

func (s *EnrichmentScheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *EnrichmentScheduler) processQueue() {
	summary, err := s.processor.ProcessQueue(s.runContext(), s.batchSize)
	if err != nil {
		s.logger.Warn("⚠️ Enrichment queue run failed", zap.Error(err))
		return
	}
	if summary.Pending > 0 {
		s.logger.Info("✅ Enrichment queue run finished",
			zap.Int("pending", summary.Pending),
			zap.Int("processed", summary.Processed),
			zap.Int("retried", summary.Retried),
			zap.Int("failed", summary.Failed))
	}
}

func (s *EnrichmentScheduler) cleanup() {
	if _, err := s.processor.CleanupProcessed(s.runContext(), ProcessedJobRetention); err != nil {
		s.logger.Warn("⚠️ Enrichment queue cleanup failed", zap.Error(err))
	}
}
