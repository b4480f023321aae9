package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	repository "github.com/okian/trainage/internal/adapters/repository"
	model "github.com/okian/trainage/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func TestMemoryStoreProfiles(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		defer s.Close()

		Convey("When a profile is missing", func() {
			_, err := s.GetProfile(ctx, "ghost")

			Convey("Then ErrProfileNotFound is returned", func() {
				So(errors.Is(err, repository.ErrProfileNotFound), ShouldBeTrue)
			})
		})

		Convey("When profiles are saved", func() {
			So(s.SaveProfile(ctx, model.Profile{UserID: "bob"}), ShouldBeNil)
			So(s.SaveProfile(ctx, model.Profile{UserID: "alice", TrainingBackground: model.TrainingBackground{TotalChronologicalMonths: 12}}), ShouldBeNil)

			Convey("Then they can be read back and listed in order", func() {
				p, err := s.GetProfile(ctx, "alice")
				So(err, ShouldBeNil)
				So(p.TrainingBackground.TotalChronologicalMonths, ShouldEqual, 12)

				ids, err := s.ListUserIDs(ctx)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"alice", "bob"})
			})
		})

		Convey("When an invalid profile is saved", func() {
			err := s.SaveProfile(ctx, model.Profile{})

			Convey("Then it is rejected as permanent", func() {
				So(errors.Is(err, model.ErrInvalidProfile), ShouldBeTrue)
				So(repository.IsPermanent(err), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStoreHistory(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		defer s.Close()

		Convey("When N history entries are appended out of order", func() {
			const n = 6
			var appended []model.HistoryEntry
			for _, offset := range []int{3, 0, 5, 1, 4, 2} {
				e := model.NewHistoryEntry("u1", model.Tiers()[offset%4], 0.8, model.TriggerBehavioralSignals,
					map[string]any{"n": offset}, base.Add(time.Duration(offset)*time.Hour))
				So(s.AppendHistoryEntry(ctx, e), ShouldBeNil)
				appended = append(appended, e)
			}

			got, err := s.QueryHistory(ctx, "u1", n)

			Convey("Then they come back strictly most recent first", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, n)
				for i := 1; i < len(got); i++ {
					So(got[i-1].Timestamp.After(got[i].Timestamp), ShouldBeTrue)
				}
			})

			Convey("Then no entry is mutated", func() {
				byID := map[string]model.HistoryEntry{}
				for _, e := range appended {
					byID[e.ID] = e
				}
				for _, e := range got {
					So(e, ShouldResemble, byID[e.ID])
				}
			})

			Convey("Then mutating a result does not leak into the store", func() {
				got[0].SupportingData["n"] = "changed"
				again, err := s.QueryHistory(ctx, "u1", 1)
				So(err, ShouldBeNil)
				So(again[0].SupportingData["n"], ShouldEqual, 5)
			})

			Convey("Then the limit is honored", func() {
				top, err := s.QueryHistory(ctx, "u1", 2)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].Timestamp, ShouldEqual, got[0].Timestamp)
			})
		})

		Convey("When the same entry is appended twice", func() {
			e := model.NewHistoryEntry("u1", model.Advanced, 0.9, model.TriggerInitialOnboarding, nil, base)
			So(s.AppendHistoryEntry(ctx, e), ShouldBeNil)
			So(s.AppendHistoryEntry(ctx, e), ShouldBeNil)

			Convey("Then it is stored once", func() {
				got, err := s.QueryHistory(ctx, "u1", 10)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
			})
		})

		Convey("When entries share a timestamp", func() {
			first := model.NewHistoryEntry("u1", model.Beginner, 0.3, model.TriggerInitialOnboarding, nil, base)
			second := model.NewHistoryEntry("u1", model.Intermediate, 0.8, model.TriggerBehavioralSignals, nil, base)
			So(s.AppendHistoryEntry(ctx, first), ShouldBeNil)
			So(s.AppendHistoryEntry(ctx, second), ShouldBeNil)

			Convey("Then the later insertion wins", func() {
				got, err := s.QueryHistory(ctx, "u1", 1)
				So(err, ShouldBeNil)
				So(got[0].Tier, ShouldEqual, model.Intermediate)
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := s.QueryHistory(ctx, "u1", 0)

			Convey("Then ErrInvalidLimit is returned", func() {
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When an entry carries a neutral tier", func() {
			e := model.NewHistoryEntry("u1", model.Neutral, 0.5, model.TriggerBehavioralSignals, nil, base)

			Convey("Then it is rejected", func() {
				So(errors.Is(s.AppendHistoryEntry(ctx, e), repository.ErrInvalidRecord), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStoreSignalsAndWorkouts(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		defer s.Close()

		Convey("When signals are appended", func() {
			for i := 0; i < 5; i++ {
				sig := model.NewSignal("u1", model.SignalExerciseSelection, "isolation_focused", model.Beginner, 0.7, base.AddDate(0, 0, -i*10))
				So(s.AppendSignal(ctx, sig), ShouldBeNil)
				So(s.AppendSignal(ctx, sig), ShouldBeNil)
			}

			Convey("Then queries respect since and return most recent first", func() {
				got, err := s.QuerySignals(ctx, "u1", base.AddDate(0, 0, -25))
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].Timestamp, ShouldEqual, base)
				So(got[2].Timestamp, ShouldEqual, base.AddDate(0, 0, -20))
			})
		})

		Convey("When a signal has no ID", func() {
			err := s.AppendSignal(ctx, model.BehavioralSignal{UserID: "u1"})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			})
		})

		Convey("When workouts are appended", func() {
			for i := 0; i < 4; i++ {
				w := model.Workout{ID: fmt.Sprintf("w%d", i), UserID: "u1", Date: base.AddDate(0, 0, -i*5),
					Exercises: []model.ExerciseLog{{Name: "squat", Category: model.CategoryCompound, Weights: []float64{100}}}}
				So(s.AppendWorkout(ctx, w), ShouldBeNil)
			}
			So(s.AppendWorkout(ctx, model.Workout{ID: "w0", UserID: "u1", Date: base.AddDate(1, 0, 0)}), ShouldBeNil)

			Convey("Then recent workouts are returned once per ID", func() {
				got, err := s.QueryRecentWorkouts(ctx, "u1", base.AddDate(0, 0, -10))
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].ID, ShouldEqual, "w0")
				So(got[0].Date, ShouldEqual, base)
			})
		})

		Convey("When two users append workouts with the same ID", func() {
			for _, user := range []string{"alice", "bob"} {
				So(s.AppendWorkout(ctx, model.Workout{ID: "w1", UserID: user, Date: base}), ShouldBeNil)
			}

			Convey("Then each user keeps their own workout", func() {
				for _, user := range []string{"alice", "bob"} {
					got, err := s.QueryRecentWorkouts(ctx, user, time.Time{})
					So(err, ShouldBeNil)
					So(got, ShouldHaveLength, 1)
					So(got[0].UserID, ShouldEqual, user)
				}
			})
		})

		Convey("When audit records are appended", func() {
			for i := 0; i < 3; i++ {
				So(s.AppendAuditRecord(ctx, model.AuditRecord{ID: fmt.Sprintf("a%d", i), UserID: "u1", Timestamp: base.Add(time.Duration(i) * time.Minute)}), ShouldBeNil)
			}

			Convey("Then they are listed most recent first", func() {
				got, err := s.QueryAuditRecords(ctx, "u1", 2)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "a2")
			})
		})
	})
}
