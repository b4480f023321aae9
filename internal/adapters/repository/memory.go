package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/metrics"
)

// MemoryStore is an in-memory Store.
//
// Every append log is kept in insertion order per user. Queries return
// copies sorted most recent first; entries with the same timestamp come
// back newest insertion first.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
	signals  map[string][]model.BehavioralSignal
	workouts map[string][]model.Workout
	history  map[string][]model.HistoryEntry
	audits   map[string][]model.AuditRecord
	ids      map[string]struct{}

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a memory store with configuration options.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		profiles:              make(map[string]model.Profile),
		signals:               make(map[string][]model.BehavioralSignal),
		workouts:              make(map[string][]model.Workout),
		history:               make(map[string][]model.HistoryEntry),
		audits:                make(map[string][]model.AuditRecord),
		ids:                   make(map[string]struct{}),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				n := len(s.profiles)
				s.mu.RUnlock()
				metrics.UpdateTrackedUsers(n)
			}
		}
	}()
}

// seen records an ID scoped by kind and user and reports whether it was
// already known. Must be called with s.mu held for writing.
func (s *MemoryStore) seen(kind, userID, id string) bool {
	key := kind + "\x00" + userID + "\x00" + id
	if _, ok := s.ids[key]; ok {
		return true
	}
	s.ids[key] = struct{}{}
	return false
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	return cloneProfile(p), nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = cloneProfile(p)
	return nil
}

func (s *MemoryStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) AppendSignal(_ context.Context, sig model.BehavioralSignal) error {
	if err := validateSignal(sig); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen("signal", sig.UserID, sig.ID) {
		return nil
	}
	s.signals[sig.UserID] = append(s.signals[sig.UserID], sig)
	return nil
}

func (s *MemoryStore) QuerySignals(_ context.Context, userID string, since time.Time) ([]model.BehavioralSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.signals[userID]
	out := make([]model.BehavioralSignal, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		if !log[i].Timestamp.Before(since) {
			out = append(out, log[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) AppendWorkout(_ context.Context, w model.Workout) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen("workout", w.UserID, w.ID) {
		return nil
	}
	s.workouts[w.UserID] = append(s.workouts[w.UserID], cloneWorkout(w))
	return nil
}

func (s *MemoryStore) QueryRecentWorkouts(_ context.Context, userID string, since time.Time) ([]model.Workout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.workouts[userID]
	out := make([]model.Workout, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		if !log[i].Date.Before(since) {
			out = append(out, cloneWorkout(log[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) AppendHistoryEntry(_ context.Context, e model.HistoryEntry) error {
	if err := validateHistoryEntry(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen("history", e.UserID, e.ID) {
		return nil
	}
	e.SupportingData = maps.Clone(e.SupportingData)
	s.history[e.UserID] = append(s.history[e.UserID], e)
	return nil
}

func (s *MemoryStore) QueryHistory(_ context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.history[userID]
	out := make([]model.HistoryEntry, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		e := log[i]
		e.SupportingData = maps.Clone(e.SupportingData)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) AppendAuditRecord(_ context.Context, r model.AuditRecord) error {
	if err := validateAuditRecord(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen("audit", r.UserID, r.ID) {
		return nil
	}
	s.audits[r.UserID] = append(s.audits[r.UserID], r)
	return nil
}

func (s *MemoryStore) QueryAuditRecords(_ context.Context, userID string, limit int) ([]model.AuditRecord, error) {
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.audits[userID]
	out := make([]model.AuditRecord, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, log[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneProfile(p model.Profile) model.Profile {
	p.MovementCompetencies.Ratings = maps.Clone(p.MovementCompetencies.Ratings)
	return p
}

func cloneWorkout(w model.Workout) model.Workout {
	exercises := make([]model.ExerciseLog, len(w.Exercises))
	for i, ex := range w.Exercises {
		ex.Reps = append([]int(nil), ex.Reps...)
		ex.Weights = append([]float64(nil), ex.Weights...)
		ex.RPE = append([]float64(nil), ex.RPE...)
		exercises[i] = ex
	}
	w.Exercises = exercises
	return w
}
