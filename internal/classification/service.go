// Package classification is the single read path for a user's current tier.
//
// The current tier is the tier of the most recent history entry. A user
// without history is classified once from their profile and the result is
// recorded as the first history entry.
package classification

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/okian/trainage/internal/adapters/repository"
	"github.com/okian/trainage/internal/domain/confidence"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/internal/domain/scoring"
	"github.com/okian/trainage/pkg/logger"
	"github.com/okian/trainage/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheSize      = 10_000
	defaultEvidenceWindow = 30 * 24 * time.Hour
)

// Store is the subset of persistence the read path needs.
type Store interface {
	repository.ProfileStore
	repository.SignalStore
	repository.HistoryStore
}

// Service resolves effective tiers and their evidence.
type Service struct {
	store    Store
	pipeline *scoring.Pipeline

	cacheSize int
	cache     *lru.Cache[string, model.HistoryEntry]
	bootstrap singleflight.Group

	// writes counts history appends per user. A read only fills the cache
	// when no append happened since it started.
	writesMu sync.Mutex
	writes   map[string]uint64

	evidenceWindow time.Duration
	now            func() time.Time
	log            logger.Logger
}

// New creates a classification service.
func New(store Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:          store,
		pipeline:       scoring.NewPipeline(),
		cacheSize:      defaultCacheSize,
		writes:         make(map[string]uint64),
		evidenceWindow: defaultEvidenceWindow,
		now:            time.Now,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.New[string, model.HistoryEntry](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("tier cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// EffectiveTier returns the user's current authoritative tier.
// It fails with repository.ErrProfileNotFound when the user has neither
// history nor a profile.
func (s *Service) EffectiveTier(ctx context.Context, userID string) (model.Tier, error) {
	e, err := s.Current(ctx, userID)
	if err != nil {
		return model.Beginner, err
	}
	return e.Tier, nil
}

// Current returns the history entry holding the user's current tier,
// running the base classification first when the user has no history.
func (s *Service) Current(ctx context.Context, userID string) (model.HistoryEntry, error) {
	if userID == "" {
		return model.HistoryEntry{}, ErrEmptyUserID
	}
	if e, ok := s.cache.Get(userID); ok {
		return e, nil
	}

	version := s.version(userID)
	latest, err := s.store.QueryHistory(ctx, userID, 1)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("query history: %w", err)
	}
	if len(latest) > 0 {
		s.fill(userID, version, latest[0])
		return latest[0], nil
	}

	v, err, _ := s.bootstrap.Do(userID, func() (any, error) {
		return s.classify(ctx, userID, version)
	})
	if err != nil {
		return model.HistoryEntry{}, err
	}
	return v.(model.HistoryEntry), nil
}

// classify runs the base pipeline and records its result.
func (s *Service) classify(ctx context.Context, userID string, version uint64) (model.HistoryEntry, error) {
	// Another caller may have recorded an entry since the cache miss.
	if latest, err := s.store.QueryHistory(ctx, userID, 1); err == nil && len(latest) > 0 {
		s.fill(userID, version, latest[0])
		return latest[0], nil
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("base classification: %w", err)
	}
	res := s.pipeline.Run(ctx, profile)

	now := s.now()
	evidence, err := s.store.QuerySignals(ctx, userID, now.Add(-s.evidenceWindow))
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("query signals: %w", err)
	}
	score := confidence.Evaluate(evidence, res.Tier).Score

	entry := model.NewHistoryEntry(userID, res.Tier, score, res.Trigger(), res.SupportingData(), now)
	if err := s.store.AppendHistoryEntry(ctx, entry); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("record base classification: %w", err)
	}
	s.fill(userID, version, entry)

	metrics.RecordBaseClassification(res.Tier.String(), string(res.Trigger()))
	s.log.Info(ctx, "base classification recorded",
		logger.UserID(userID),
		logger.String("tier", res.Tier.String()),
		logger.String("trigger", string(res.Trigger())),
		logger.Float64("effective_months", res.EffectiveMonths),
	)
	return entry, nil
}

// Detail returns the evidence breakdown behind the user's current tier.
//
// Without any real-tier evidence the verdict keeps the conservative score
// and validation flag but reports the effective tier, so both read
// operations agree on what the user's tier is.
func (s *Service) Detail(ctx context.Context, userID string) (model.ClassificationConfidence, error) {
	tier, err := s.EffectiveTier(ctx, userID)
	if err != nil {
		return model.ClassificationConfidence{}, err
	}
	evidence, err := s.store.QuerySignals(ctx, userID, s.now().Add(-s.evidenceWindow))
	if err != nil {
		return model.ClassificationConfidence{}, fmt.Errorf("query signals: %w", err)
	}
	verdict := confidence.Evaluate(evidence, tier)
	verdict.CurrentTier = tier
	return verdict, nil
}

// History returns up to limit history entries, most recent first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return s.store.QueryHistory(ctx, userID, limit)
}

// Record appends a tier change and refreshes the cached tier.
func (s *Service) Record(ctx context.Context, entry model.HistoryEntry) error {
	err := s.store.AppendHistoryEntry(ctx, entry)
	// The append may have landed even when it reports an error.
	s.Invalidate(entry.UserID)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// Invalidate drops the cached tier of a user and stops reads already in
// flight from caching what they fetched.
func (s *Service) Invalidate(userID string) {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	s.writes[userID]++
	s.cache.Remove(userID)
}

func (s *Service) version(userID string) uint64 {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	return s.writes[userID]
}

// fill caches entry unless the user's history changed after version was taken.
func (s *Service) fill(userID string, version uint64, entry model.HistoryEntry) {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	if s.writes[userID] != version {
		return
	}
	s.cache.Add(userID, entry)
}

// CacheLen returns the number of cached tiers.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}
