package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	model "github.com/okian/trainage/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func TestTier(t *testing.T) {
	Convey("Given the tier enum", t, func() {
		Convey("Then tiers are totally ordered", func() {
			So(model.Beginner < model.Intermediate, ShouldBeTrue)
			So(model.Intermediate < model.Advanced, ShouldBeTrue)
			So(model.Advanced < model.HighlyAdvanced, ShouldBeTrue)
			So(model.Tiers(), ShouldHaveLength, 4)
		})

		Convey("Then neutral is not a real tier", func() {
			So(model.Neutral.IsReal(), ShouldBeFalse)
			So(model.HighlyAdvanced.IsReal(), ShouldBeTrue)
		})

		Convey("Then names round-trip through JSON", func() {
			b, err := json.Marshal(struct {
				T model.Tier `json:"t"`
			}{model.HighlyAdvanced})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"t":"highly_advanced"}`)

			var out struct {
				T model.Tier `json:"t"`
			}
			So(json.Unmarshal([]byte(`{"t":"neutral"}`), &out), ShouldBeNil)
			So(out.T, ShouldEqual, model.Neutral)
		})

		Convey("Then unknown names are rejected", func() {
			_, err := model.ParseTier("elite")
			So(errors.Is(err, model.ErrUnknownTier), ShouldBeTrue)
		})
	})
}

func TestStrengthLevel(t *testing.T) {
	Convey("Average ignores unknown lifts", t, func() {
		avg, ok := model.StrengthLevel{Bench: 1.0, Squat: 1.5}.Average()
		So(ok, ShouldBeTrue)
		So(avg, ShouldAlmostEqual, 1.25)

		_, ok = model.StrengthLevel{}.Average()
		So(ok, ShouldBeFalse)
	})
}

func TestSignalIDs(t *testing.T) {
	Convey("Given two signals with the same content", t, func() {
		ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		a := model.NewSignal("u1", model.SignalExerciseSelection, "isolation_focused", model.Beginner, 0.7, ts)
		b := model.NewSignal("u1", model.SignalExerciseSelection, "isolation_focused", model.Beginner, 0.7, ts)
		c := model.NewSignal("u1", model.SignalExerciseSelection, "isolation_focused", model.Beginner, 0.7, ts.Add(time.Second))

		So(a.ID, ShouldEqual, b.ID)
		So(a.ID, ShouldNotEqual, c.ID)
	})
}

func TestProfileValidate(t *testing.T) {
	Convey("Given a profile", t, func() {
		p := model.Profile{
			UserID: "u1",
			TrainingBackground: model.TrainingBackground{
				CurrentConsecutiveMonths: 6,
				TotalChronologicalMonths: 12,
				AverageSessionsPerWeek:   3,
			},
			MovementCompetencies: model.MovementCompetencies{SelfRating: ptr(3.5)},
			PhysicalProfile:      model.PhysicalProfile{BodyweightKg: 80, SquatKg: ptr(100)},
		}

		Convey("A well-formed profile passes", func() {
			So(p.Validate(), ShouldBeNil)
		})

		Convey("A streak longer than total history fails", func() {
			p.TrainingBackground.CurrentConsecutiveMonths = 24
			So(errors.Is(p.Validate(), model.ErrInvalidProfile), ShouldBeTrue)
		})

		Convey("An out of range technique rating fails", func() {
			p.MovementCompetencies.Ratings = map[string]float64{"squat": 7}
			So(errors.Is(p.Validate(), model.ErrInvalidProfile), ShouldBeTrue)
		})

		Convey("A missing user id fails", func() {
			p.UserID = ""
			So(errors.Is(p.Validate(), model.ErrInvalidProfile), ShouldBeTrue)
		})
	})
}

func TestWorkoutHelpers(t *testing.T) {
	Convey("Given an exercise log", t, func() {
		e := model.ExerciseLog{Name: "squat", Weights: []float64{100, 110, 105}, RPE: []float64{0, 0}}

		So(e.TopWeight(), ShouldEqual, 110)
		So(e.HasRPE(), ShouldBeFalse)
		e.RPE = []float64{0, 8}
		So(e.HasRPE(), ShouldBeTrue)
	})

	Convey("Workouts with unknown categories fail validation", t, func() {
		w := model.Workout{ID: "w1", UserID: "u1", Date: time.Now(), Exercises: []model.ExerciseLog{{Name: "x", Category: "cardio"}}}
		So(errors.Is(w.Validate(), model.ErrInvalidWorkout), ShouldBeTrue)
	})
}
