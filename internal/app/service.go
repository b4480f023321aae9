// Package service wires the classifier components into the running service
// used by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/trainage/internal/adapters/mq/queue"
	workerpool "github.com/okian/trainage/internal/adapters/mq/worker"
	"github.com/okian/trainage/internal/adapters/badgerstore"
	"github.com/okian/trainage/internal/adapters/repository"
	"github.com/okian/trainage/internal/adapters/sqlstore"
	"github.com/okian/trainage/internal/audit"
	"github.com/okian/trainage/internal/classification"
	"github.com/okian/trainage/internal/config"
	"github.com/okian/trainage/internal/domain/confidence"
	"github.com/okian/trainage/internal/domain/dedupe"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/internal/domain/signals"
	"github.com/okian/trainage/pkg/logger"
	"github.com/okian/trainage/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service owns the store, the read path, the audit scheduler and the
// asynchronous audit pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	injected   repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	tiers      *classification.Service
	auditor    *audit.Scheduler

	// Configuration
	storeDriver       string
	storeDSN          string
	retryMaxElapsed   time.Duration
	workerCount       int
	queueSize         int
	dedupeSize        int
	tierCacheSize     int
	auditSchedule     string
	auditConcurrency  int
	signalWindow      time.Duration
	eligibilityWindow time.Duration
	evidenceWindow    time.Duration
	minWorkouts       int
	progressionLift   string
	thresholds        confidence.Thresholds

	// State
	started bool
	cancel  context.CancelFunc

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:       config.DriverMemory,
		retryMaxElapsed:   3 * time.Second,
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10_000,
		dedupeSize:        100_000,
		tierCacheSize:     10_000,
		auditConcurrency:  8,
		signalWindow:      signals.DefaultWindow,
		eligibilityWindow: 14 * 24 * time.Hour,
		evidenceWindow:    30 * 24 * time.Hour,
		minWorkouts:       4,
		thresholds:        confidence.DefaultThresholds(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and starts the workers and the audit sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting classification service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	base := s.injected
	if base == nil {
		opened, err := s.openStore(runCtx)
		if err != nil {
			cancel()
			return err
		}
		base = opened
	}
	store := repository.NewRetryingStore(base,
		repository.WithMaxElapsed(s.retryMaxElapsed),
		repository.WithRetryLogger(s.logger.Named("store")),
	)

	tiers, err := classification.New(store,
		classification.WithCacheSize(s.tierCacheSize),
		classification.WithEvidenceWindow(s.evidenceWindow),
		classification.WithClock(s.now),
		classification.WithLogger(s.logger.Named("classification")),
	)
	if err != nil {
		cancel()
		if s.injected == nil {
			if cerr := base.Close(); cerr != nil {
				s.logger.Warn(ctx, "store close", logger.Error(cerr))
			}
		}
		return fmt.Errorf("classification service: %w", err)
	}

	auditor := audit.New(store, tiers,
		audit.WithThresholds(s.thresholds),
		audit.WithSignalWindow(s.signalWindow),
		audit.WithEligibility(s.eligibilityWindow, s.minWorkouts),
		audit.WithEvidenceWindow(s.evidenceWindow),
		audit.WithProgressionLift(s.progressionLift),
		audit.WithConcurrency(s.auditConcurrency),
		audit.WithSchedule(s.auditSchedule),
		audit.WithClock(s.now),
		audit.WithLogger(s.logger.Named("audit")),
	)
	if err := auditor.Start(runCtx); err != nil {
		cancel()
		if s.injected == nil {
			if cerr := base.Close(); cerr != nil {
				s.logger.Warn(ctx, "store close", logger.Error(cerr))
			}
		}
		return fmt.Errorf("audit scheduler: %w", err)
	}

	s.store = store
	s.tiers = tiers
	s.auditor = auditor
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, auditor,
		workerpool.WithPoolLogger(s.logger.Named("worker")))
	s.workerPool.Start(runCtx)

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "classification service started",
		logger.String("store", s.storeDriver),
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("auditSchedule", s.auditSchedule),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeDriver {
	case "", config.DriverMemory:
		return repository.NewMemoryStore(ctx), nil
	case config.DriverSQLite, config.DriverPostgres:
		st, err := sqlstore.Open(ctx, s.storeDriver, s.storeDSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", s.storeDriver, err)
		}
		return st, nil
	case config.DriverBadger:
		st, err := badgerstore.Open(ctx, s.storeDSN, badgerstore.WithLogger(s.logger.Named("badger")))
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", sqlstore.ErrUnsupportedDriver, s.storeDriver)
	}
}

// Stop drains the audit queue and shuts every component down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping classification service...")

	s.auditor.Stop()
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}
	s.store = nil

	s.started = false
	s.logger.Info(ctx, "classification service stopped")
}

func (s *Service) running() error {
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SaveProfile validates and stores an onboarding profile.
func (s *Service) SaveProfile(ctx context.Context, p model.Profile) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return err
	}
	return s.store.SaveProfile(ctx, p)
}

// LogWorkout stores a completed workout and queues an audit for its user.
// It reports duplicate=true when the workout id was already logged.
func (s *Service) LogWorkout(ctx context.Context, w model.Workout) (duplicate bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return false, err
	}
	if err := w.Validate(); err != nil {
		return false, err
	}

	key := workoutKey(w)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate workout skipped",
			logger.String("workout_id", w.ID),
			logger.UserID(w.UserID),
		)
		return true, nil
	}

	if err := s.store.AppendWorkout(ctx, w); err != nil {
		s.deduper.Unrecord(ctx, key)
		return false, fmt.Errorf("append workout: %w", err)
	}

	ev := eventqueue.Event{
		EventID:    w.ID,
		UserID:     w.UserID,
		Trigger:    model.AuditWorkoutCompleted,
		ReceivedAt: s.now(),
	}
	if !s.eventQueue.Enqueue(ctx, ev) {
		// The workout is stored; forgetting the id lets the client retry the trigger.
		s.deduper.Unrecord(ctx, key)
		return false, eventqueue.ErrQueueFull
	}
	return false, nil
}

// workoutKey scopes a workout id to its user; ids are client supplied.
func workoutKey(w model.Workout) string {
	return w.UserID + "\x00" + w.ID
}

// EffectiveTier returns the user's current tier.
func (s *Service) EffectiveTier(ctx context.Context, userID string) (model.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return model.Beginner, err
	}
	return s.tiers.EffectiveTier(ctx, userID)
}

// Detail returns the evidence breakdown behind the user's current tier.
func (s *Service) Detail(ctx context.Context, userID string) (model.ClassificationConfidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return model.ClassificationConfidence{}, err
	}
	return s.tiers.Detail(ctx, userID)
}

// History returns up to limit history entries, most recent first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.tiers.History(ctx, userID, limit)
}

// AuditRecords returns up to limit audit records, most recent first.
func (s *Service) AuditRecords(ctx context.Context, userID string, limit int) ([]model.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.QueryAuditRecords(ctx, userID, limit)
}

// Audit runs a manual audit for the user synchronously.
func (s *Service) Audit(ctx context.Context, userID string) (audit.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return audit.Result{}, err
	}
	return s.auditor.Audit(ctx, userID, model.AuditManual)
}

// Sweep audits every known user once.
func (s *Service) Sweep(ctx context.Context) (audit.SweepSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return audit.SweepSummary{}, err
	}
	return s.auditor.Sweep(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"storeDriver": s.storeDriver,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["queueLength"] = s.eventQueue.Len(ctx)
	stats["eventsProcessed"] = s.workerPool.Processed()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["cachedTiers"] = s.tiers.CacheLen()
	stats["auditsRunning"] = s.auditor.Running()
	if next := s.auditor.NextSweep(); !next.IsZero() {
		stats["nextSweep"] = next.UTC().Format(time.RFC3339)
	}
	if ids, err := s.store.ListUserIDs(ctx); err == nil {
		stats["users"] = len(ids)
		metrics.UpdateTrackedUsers(len(ids))
	}
	return stats
}
