package scoring_test

import (
	"context"
	"testing"

	model "github.com/okian/trainage/internal/domain/model"
	scoring "github.com/okian/trainage/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	Convey("Given effective month values around the tier boundaries", t, func() {
		cases := []struct {
			months float64
			want   model.Tier
		}{
			{0, model.Beginner},
			{14.9, model.Beginner},
			{15.0, model.Intermediate},
			{29.9, model.Intermediate},
			{30.0, model.Advanced},
			{59.9, model.Advanced},
			{60.0, model.HighlyAdvanced},
			{240, model.HighlyAdvanced},
		}

		Convey("Then lower bounds are inclusive and upper bounds exclusive", func() {
			for _, c := range cases {
				So(scoring.Classify(c.months), ShouldEqual, c.want)
			}
		})
	})
}

func TestEffectiveMonths(t *testing.T) {
	Convey("Given training factors", t, func() {
		Convey("When every field is zero", func() {
			Convey("Then effective months is exactly zero", func() {
				So(scoring.EffectiveMonths(model.TrainingFactors{}), ShouldEqual, 0)
			})
		})

		Convey("When the user trains consistently with good technique", func() {
			f := model.TrainingFactors{
				CurrentConsecutiveMonths: 18,
				TotalDetrainingMonths:    2,
				TotalChronologicalMonths: 24,
				TechnicalProficiency:     4.0,
				AverageSessionsPerWeek:   4,
			}
			months := scoring.EffectiveMonths(f)

			Convey("Then the result is about 46 months and advanced", func() {
				So(months, ShouldAlmostEqual, 45.8667, 0.001)
				So(scoring.Classify(months), ShouldEqual, model.Advanced)
			})
		})

		Convey("When a returning athlete has a long layoff", func() {
			f := model.TrainingFactors{
				CurrentConsecutiveMonths: 3,
				TotalDetrainingMonths:    60,
				TotalChronologicalMonths: 84,
				TechnicalProficiency:     4.0,
				AverageSessionsPerWeek:   4,
				HasUsedPeriodization:     true,
			}

			Convey("Then total history and technique still yield highly advanced", func() {
				months := scoring.EffectiveMonths(f)
				So(months, ShouldAlmostEqual, 102.1333, 0.001)
				So(scoring.Classify(months), ShouldEqual, model.HighlyAdvanced)
			})
		})

		Convey("When detraining outweighs history", func() {
			f := model.TrainingFactors{
				TotalDetrainingMonths:    50,
				TotalChronologicalMonths: 10,
				TechnicalProficiency:     3,
				AverageSessionsPerWeek:   3,
			}

			Convey("Then the result is floored at zero", func() {
				So(scoring.EffectiveMonths(f), ShouldEqual, 0)
			})
		})

		Convey("When frequency is very high", func() {
			base := model.TrainingFactors{TotalChronologicalMonths: 10, TechnicalProficiency: 3, AverageSessionsPerWeek: 4.5}
			heavy := base
			heavy.AverageSessionsPerWeek = 12

			Convey("Then the consistency multiplier is capped", func() {
				So(scoring.EffectiveMonths(heavy), ShouldEqual, scoring.EffectiveMonths(base))
				So(scoring.EffectiveMonths(base), ShouldAlmostEqual, 15.0)
			})
		})
	})
}

func TestValidateStrength(t *testing.T) {
	Convey("Given a candidate tier and strength data", t, func() {
		Convey("When strength is weak and technique is poor", func() {
			f := model.TrainingFactors{TechnicalProficiency: 2.0, Strength: &model.StrengthLevel{Bench: 0.9, Squat: 0.9, Deadlift: 0.9}}
			tier, fired := scoring.ValidateStrength(model.Intermediate, f)

			Convey("Then the floor forces beginner", func() {
				So(tier, ShouldEqual, model.Beginner)
				So(fired, ShouldBeTrue)
			})
		})

		Convey("When a beginner lifts well above bodyweight", func() {
			f := model.TrainingFactors{TechnicalProficiency: 3.0, Strength: &model.StrengthLevel{Bench: 1.6, Squat: 1.6, Deadlift: 1.6}}
			tier, fired := scoring.ValidateStrength(model.Beginner, f)

			Convey("Then the ceiling promotes to intermediate", func() {
				So(tier, ShouldEqual, model.Intermediate)
				So(fired, ShouldBeTrue)
			})
		})

		Convey("When strength is moderate", func() {
			f := model.TrainingFactors{TechnicalProficiency: 3.0, Strength: &model.StrengthLevel{Bench: 1.2, Squat: 1.2, Deadlift: 1.2}}
			tier, fired := scoring.ValidateStrength(model.Intermediate, f)

			Convey("Then the tier is unchanged", func() {
				So(tier, ShouldEqual, model.Intermediate)
				So(fired, ShouldBeFalse)
			})
		})

		Convey("When no strength data exists", func() {
			tier, fired := scoring.ValidateStrength(model.Advanced, model.TrainingFactors{TechnicalProficiency: 1})

			Convey("Then the candidate passes through", func() {
				So(tier, ShouldEqual, model.Advanced)
				So(fired, ShouldBeFalse)
			})
		})
	})
}

func TestExtractFactors(t *testing.T) {
	Convey("Given a profile", t, func() {
		p := model.Profile{
			UserID: "u1",
			TrainingBackground: model.TrainingBackground{
				CurrentConsecutiveMonths: 6,
				TotalChronologicalMonths: 12,
				AverageSessionsPerWeek:   3,
				UnderstandsRPE:           true,
			},
			PhysicalProfile: model.PhysicalProfile{BodyweightKg: 80, SquatKg: ptr(120), BenchPressKg: ptr(80)},
		}

		Convey("When no technique rating is given", func() {
			f := scoring.ExtractFactors(p)

			Convey("Then proficiency is neutral", func() {
				So(f.TechnicalProficiency, ShouldEqual, 3.0)
				So(f.UnderstandsRPE, ShouldBeTrue)
			})

			Convey("Then ratios are derived from bodyweight", func() {
				So(f.Strength, ShouldNotBeNil)
				So(f.Strength.Squat, ShouldAlmostEqual, 1.5)
				So(f.Strength.Bench, ShouldAlmostEqual, 1.0)
				So(f.Strength.Deadlift, ShouldEqual, 0)
			})
		})

		Convey("When per-movement ratings are given", func() {
			p.MovementCompetencies.Ratings = map[string]float64{"squat": 4, "hinge": 2}

			Convey("Then proficiency is their mean", func() {
				So(scoring.ExtractFactors(p).TechnicalProficiency, ShouldAlmostEqual, 3.0)
			})

			Convey("And a self rating wins", func() {
				p.MovementCompetencies.SelfRating = ptr(4.5)
				So(scoring.ExtractFactors(p).TechnicalProficiency, ShouldEqual, 4.5)
			})
		})

		Convey("When bodyweight is unknown", func() {
			p.PhysicalProfile.BodyweightKg = 0

			Convey("Then strength is absent", func() {
				So(scoring.ExtractFactors(p).Strength, ShouldBeNil)
			})
		})
	})
}

func TestPipeline(t *testing.T) {
	Convey("Given a pipeline", t, func() {
		p := scoring.NewPipeline()

		Convey("When the profile is a weak, unskilled lifter with years of history", func() {
			res := p.Run(context.Background(), model.Profile{
				UserID: "u1",
				TrainingBackground: model.TrainingBackground{
					CurrentConsecutiveMonths: 12,
					TotalChronologicalMonths: 24,
					AverageSessionsPerWeek:   3,
				},
				MovementCompetencies: model.MovementCompetencies{SelfRating: ptr(2.0)},
				PhysicalProfile:      model.PhysicalProfile{BodyweightKg: 100, SquatKg: ptr(80)},
			})

			Convey("Then the strength floor overrides the formula tier", func() {
				So(res.FormulaTier, ShouldEqual, model.Intermediate)
				So(res.Tier, ShouldEqual, model.Beginner)
				So(res.StrengthAdjusted, ShouldBeTrue)
				So(res.Trigger(), ShouldEqual, model.TriggerPerformanceData)
				So(res.SupportingData()["formula_tier"], ShouldEqual, "intermediate")
			})
		})

		Convey("When the profile has no strength data", func() {
			res := p.Run(context.Background(), model.Profile{UserID: "u2"})

			Convey("Then the trigger is initial onboarding", func() {
				So(res.Tier, ShouldEqual, model.Beginner)
				So(res.Trigger(), ShouldEqual, model.TriggerInitialOnboarding)
			})
		})
	})

	Convey("RepresentativeMonths maps back into the same tier", t, func() {
		for _, tier := range model.Tiers() {
			So(scoring.Classify(scoring.RepresentativeMonths(tier)), ShouldEqual, tier)
		}
	})
}
