package loadgen_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okian/trainage/internal/adapters/http/api"
	app "github.com/okian/trainage/internal/app"
	"github.com/okian/trainage/internal/loadgen"
	"github.com/okian/trainage/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
	gin.SetMode(gin.TestMode)
}

func TestRun(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithWorkerCount(2), app.WithQueueSize(1000), app.WithAuditSchedule(""))
		So(svc.Start(ctx), ShouldBeNil)
		srv := httptest.NewServer(api.NewRouter(ctx, svc, svc))
		Reset(func() {
			srv.Close()
			svc.Stop()
		})

		cfg := loadgen.DefaultConfig()
		cfg.BaseURL = srv.URL
		cfg.Users = 6
		cfg.WorkoutsPerUser = 5
		cfg.Workers = 4
		cfg.DuplicatePercent = 10
		cfg.Settle = 50 * time.Millisecond
		cfg.Audit = true
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "trainees.json")

		Convey("When a load run completes", func() {
			stats, err := loadgen.Run(ctx, cfg)

			Convey("Then every submission is accounted for", func() {
				So(err, ShouldBeNil)
				So(stats.ProfilesSaved, ShouldEqual, 6)
				So(stats.WorkoutsAccepted, ShouldEqual, 30)
				So(stats.WorkoutsDuplicate, ShouldEqual, 3)
				So(stats.WorkoutsFailed, ShouldEqual, 0)
				So(stats.AuditsRun, ShouldEqual, 6)
				So(stats.TiersRetrieved, ShouldEqual, 6)

				var total int
				for _, n := range stats.Tiers {
					total += n
				}
				So(total, ShouldEqual, 6)
				So(cfg.OutputFile, ShouldNotBeEmpty)
			})
		})
	})

	Convey("Given no service at the target address", t, func() {
		cfg := loadgen.DefaultConfig()
		cfg.BaseURL = "http://127.0.0.1:1"
		cfg.Timeout = 200 * time.Millisecond

		Convey("When a load run starts", func() {
			_, err := loadgen.Run(context.Background(), cfg)

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health check")
			})
		})
	})

	Convey("Given a config without users", t, func() {
		cfg := loadgen.DefaultConfig()
		cfg.Users = 0

		Convey("Then the run is rejected", func() {
			_, err := loadgen.Run(context.Background(), cfg)
			So(err, ShouldWrap, loadgen.ErrInvalidConfig)
		})
	})
}
