package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/trainage/internal/adapters/repository"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestProfileRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "p-missing")
	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))

	p := model.Profile{
		UserID: "p-1",
		TrainingBackground: model.TrainingBackground{
			CurrentConsecutiveMonths: 18,
			TotalChronologicalMonths: 24,
			AverageSessionsPerWeek:   4,
		},
		MovementCompetencies: model.MovementCompetencies{SelfRating: ptr(4)},
		PhysicalProfile:      model.PhysicalProfile{BodyweightKg: 82, SquatKg: ptr(140)},
	}
	require.NoError(t, s.SaveProfile(ctx, p))
	got, err := s.GetProfile(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, s.SaveProfile(ctx, model.Profile{UserID: "p-0"}))
	require.NoError(t, s.SaveProfile(ctx, p))
	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-0", "p-1"}, ids)

	assert.True(t, errors.Is(s.SaveProfile(ctx, model.Profile{}), model.ErrInvalidProfile))
}

func TestSignalsIdempotentAndOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		sig := model.NewSignal("s-1", model.SignalTerminologyUsage, "no_rpe_usage", model.Beginner, 0.6, t0.AddDate(0, 0, -i*10))
		require.NoError(t, s.AppendSignal(ctx, sig))
		require.NoError(t, s.AppendSignal(ctx, sig))
	}
	neutral := model.NewSignal("s-1", model.SignalConsistencyPattern, "consistent_training", model.Neutral, 0.5, t0)
	require.NoError(t, s.AppendSignal(ctx, neutral))
	other := model.NewSignal("s-10", model.SignalTerminologyUsage, "no_rpe_usage", model.Beginner, 0.6, t0)
	require.NoError(t, s.AppendSignal(ctx, other))

	got, err := s.QuerySignals(ctx, "s-1", t0.AddDate(0, 0, -15))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, neutral.ID, got[0].ID, "later insertion wins a timestamp tie")
	assert.Equal(t, model.Neutral, got[0].Indicator)
	assert.True(t, got[2].Timestamp.Equal(t0.AddDate(0, 0, -10)))

	assert.True(t, errors.Is(s.AppendSignal(ctx, model.BehavioralSignal{}), repository.ErrInvalidRecord))
}

func TestWorkoutsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	w := model.Workout{
		ID:     "w-1",
		UserID: "w-user",
		Date:   t0,
		Exercises: []model.ExerciseLog{
			{Name: "squat", Category: model.CategoryCompound, Reps: []int{5, 5}, Weights: []float64{100, 105}, RPE: []float64{7, 8}},
		},
	}
	require.NoError(t, s.AppendWorkout(ctx, w))
	require.NoError(t, s.AppendWorkout(ctx, w))
	require.NoError(t, s.AppendWorkout(ctx, model.Workout{ID: "w-0", UserID: "w-user", Date: t0.AddDate(0, 0, -30)}))

	got, err := s.QueryRecentWorkouts(ctx, "w-user", t0.AddDate(0, 0, -14))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, w.Exercises, got[0].Exercises)

	all, err := s.QueryRecentWorkouts(ctx, "w-user", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "w-1", all[0].ID)

	assert.True(t, errors.Is(s.AppendWorkout(ctx, model.Workout{ID: "bad"}), model.ErrInvalidWorkout))
}

func TestWorkoutIDsAreScopedPerUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"scope-a", "scope-b"} {
		w := model.Workout{ID: "w1", UserID: user, Date: t0}
		require.NoError(t, s.AppendWorkout(ctx, w))
		require.NoError(t, s.AppendWorkout(ctx, w))
	}

	for _, user := range []string{"scope-a", "scope-b"} {
		got, err := s.QueryRecentWorkouts(ctx, user, time.Time{})
		require.NoError(t, err)
		require.Len(t, got, 1, user)
		assert.Equal(t, user, got[0].UserID)
	}
}

func TestHistoryAndAudits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, offset := range []int{2, 4, 0, 3, 1} {
		e := model.NewHistoryEntry("h-1", model.Tiers()[offset%4], 0.1*float64(offset+1), model.TriggerBehavioralSignals,
			map[string]any{"reason": fmt.Sprintf("r%d", offset)}, t0.Add(time.Duration(offset)*time.Hour))
		require.NoError(t, s.AppendHistoryEntry(ctx, e))
		require.NoError(t, s.AppendHistoryEntry(ctx, e))
	}
	got, err := s.QueryHistory(ctx, "h-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.After(got[i].Timestamp))
	}
	assert.Equal(t, "r4", got[0].SupportingData["reason"])

	_, err = s.QueryHistory(ctx, "h-1", 0)
	assert.True(t, errors.Is(err, repository.ErrInvalidLimit))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendAuditRecord(ctx, model.AuditRecord{
			ID:           fmt.Sprintf("a-%d", i),
			UserID:       "a-user",
			Timestamp:    t0,
			Trigger:      model.AuditManual,
			PreviousTier: model.Beginner,
			ResultTier:   model.Intermediate,
		}))
	}
	records, err := s.QueryAuditRecords(ctx, "a-user", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-2", records[0].ID, "later insertion wins a timestamp tie")
	assert.Equal(t, model.Intermediate, records[0].ResultTier)
}

func TestConcurrentAppendsThroughRetryingStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := repository.NewRetryingStore(s)

	e := model.NewHistoryEntry("c-1", model.Beginner, 0.3, model.TriggerInitialOnboarding, nil, t0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.AppendHistoryEntry(ctx, e))
		}()
	}
	wg.Wait()

	got, err := s.QueryHistory(ctx, "c-1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, dir, WithGCInterval(0))
	require.NoError(t, err)
	require.NoError(t, s.SaveProfile(ctx, model.Profile{UserID: "d-1"}))
	require.NoError(t, s.AppendHistoryEntry(ctx, model.NewHistoryEntry("d-1", model.Advanced, 0.9, model.TriggerInitialOnboarding, nil, t0)))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = Open(ctx, dir, WithGCInterval(0))
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetProfile(ctx, "d-1")
	require.NoError(t, err)
	got, err := s.QueryHistory(ctx, "d-1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Advanced, got[0].Tier)
}
