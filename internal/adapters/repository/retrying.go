package repository

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/logger"
	"github.com/okian/trainage/pkg/metrics"
)

const (
	defaultRetryInitialInterval = 100 * time.Millisecond
	defaultRetryMaxElapsed      = 3 * time.Second
)

// RetryingStore retries writes of a delegate store with exponential backoff.
// Reads pass through. Validation failures are not retried.
type RetryingStore struct {
	Store

	buildBackoff func() backoff.BackOff
	maxElapsed   time.Duration
	log          logger.Logger
}

var _ Store = (*RetryingStore)(nil)

// NewRetryingStore wraps delegate.
func NewRetryingStore(delegate Store, opts ...RetryOption) *RetryingStore {
	s := &RetryingStore{
		Store:      delegate,
		maxElapsed: defaultRetryMaxElapsed,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buildBackoff == nil {
		maxElapsed := s.maxElapsed
		s.buildBackoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = defaultRetryInitialInterval
			b.MaxElapsedTime = maxElapsed
			return b
		}
	}
	return s
}

func (s *RetryingStore) SaveProfile(ctx context.Context, p model.Profile) error {
	return s.retry(ctx, "save_profile", func() error { return s.Store.SaveProfile(ctx, p) })
}

func (s *RetryingStore) AppendSignal(ctx context.Context, sig model.BehavioralSignal) error {
	return s.retry(ctx, "append_signal", func() error { return s.Store.AppendSignal(ctx, sig) })
}

func (s *RetryingStore) AppendWorkout(ctx context.Context, w model.Workout) error {
	return s.retry(ctx, "append_workout", func() error { return s.Store.AppendWorkout(ctx, w) })
}

func (s *RetryingStore) AppendHistoryEntry(ctx context.Context, e model.HistoryEntry) error {
	return s.retry(ctx, "append_history", func() error { return s.Store.AppendHistoryEntry(ctx, e) })
}

func (s *RetryingStore) AppendAuditRecord(ctx context.Context, r model.AuditRecord) error {
	return s.retry(ctx, "append_audit", func() error { return s.Store.AppendAuditRecord(ctx, r) })
}

func (s *RetryingStore) retry(ctx context.Context, op string, fn func() error) error {
	wrapped := func() error {
		err := fn()
		if err != nil && IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		metrics.RecordStoreRetry(op)
		s.log.Warn(ctx, "store write failed, retrying",
			logger.String("operation", op),
			logger.Duration("next", next),
			logger.Error(err),
		)
	}

	err := backoff.RetryNotify(wrapped, backoff.WithContext(s.buildBackoff(), ctx), notify)
	if err != nil && !IsPermanent(err) {
		metrics.RecordStoreError(op)
	}
	return err
}
