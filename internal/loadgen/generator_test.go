package loadgen

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateTrainees(t *testing.T) {
	Convey("Given a fixed clock", t, func() {
		now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
		cfg := &Config{Users: 4, WorkoutsPerUser: 5}

		Convey("When trainees are generated", func() {
			out, err := generateTrainees(context.Background(), cfg, now)
			So(err, ShouldBeNil)

			Convey("Then personas cycle and every profile is valid", func() {
				So(out, ShouldHaveLength, 4)
				So(out[0].Persona, ShouldEqual, PersonaNovice)
				So(out[1].Persona, ShouldEqual, PersonaSteady)
				So(out[2].Persona, ShouldEqual, PersonaVeteran)
				So(out[3].Persona, ShouldEqual, PersonaNovice)
				for _, tr := range out {
					p := tr.Profile
					So(p.Validate(), ShouldBeNil)
				}
				So(out[0].Profile.UserID, ShouldNotEqual, out[3].Profile.UserID)
			})

			Convey("Then workouts are dated before now in ascending order", func() {
				ws := out[0].Workouts
				So(ws, ShouldHaveLength, 5)
				for i, w := range ws {
					So(w.Validate(), ShouldBeNil)
					So(w.Date.Before(now), ShouldBeTrue)
					if i > 0 {
						So(w.Date.After(ws[i-1].Date), ShouldBeTrue)
					}
				}
			})

			Convey("Then a novice adds weight every session", func() {
				ws := out[0].Workouts
				for i := 1; i < len(ws); i++ {
					So(ws[i].Exercises[0].TopWeight(), ShouldBeGreaterThan, ws[i-1].Exercises[0].TopWeight())
				}
			})

			Convey("Then a veteran logs RPE", func() {
				So(out[2].Workouts[0].Exercises[0].HasRPE(), ShouldBeTrue)
			})
		})
	})
}
