package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/trainage/internal/adapters/http/api"
	app "github.com/okian/trainage/internal/app"
	"github.com/okian/trainage/internal/config"
	"github.com/okian/trainage/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/cobra"
)

func init() {
	_ = logger.Init()
}

func TestConfigLoading(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("TRAINAGE_ADDR", ":8080")
			_ = os.Setenv("TRAINAGE_QUEUE_SIZE", "1000")
			_ = os.Setenv("TRAINAGE_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("TRAINAGE_ADDR")
				_ = os.Unsetenv("TRAINAGE_QUEUE_SIZE")
				_ = os.Unsetenv("TRAINAGE_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the address is blanked", func() {
			_ = os.Setenv("TRAINAGE_ADDR", "")
			defer func() { _ = os.Unsetenv("TRAINAGE_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns once the context ends", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics update on a stopped service", func() {
			svc := app.New()

			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
				convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the router is built over a started service", func() {
			ctx := context.Background()
			svc := app.New(app.WithWorkerCount(2), app.WithQueueSize(100), app.WithAuditSchedule(""))
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			r := api.NewRouter(ctx, svc, svc)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

			convey.Convey("Then /stats reports the running service", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"started":true`)
			})
		})
	})
}

// newTestRoot rebuilds a root command so flag state does not leak between runs.
func newTestRoot(sub *cobra.Command) *cobra.Command {
	root := &cobra.Command{Use: "trainage", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "")
	root.PersistentFlags().String("log-level", "", "")
	root.AddCommand(sub)
	return root
}

func TestClassifyCommand(t *testing.T) {
	convey.Convey("Given the classify command", t, func() {
		profile := `{"user_id":"u1","training_background":{"current_consecutive_months":12,"total_chronological_months":24,"average_sessions_per_week":3},"movement_competencies":{"self_rating":3}}`

		convey.Convey("When a profile is piped on stdin", func() {
			var out bytes.Buffer
			root := newTestRoot(classifyCmd)
			root.SetIn(strings.NewReader(profile))
			root.SetOut(&out)
			root.SetArgs([]string{"classify"})
			err := root.ExecuteContext(context.Background())

			convey.Convey("Then the base result is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var res map[string]any
				convey.So(json.Unmarshal(out.Bytes(), &res), convey.ShouldBeNil)
				convey.So(res["user_id"], convey.ShouldEqual, "u1")
				convey.So(res["tier"], convey.ShouldEqual, "intermediate")
				convey.So(res["trigger"], convey.ShouldEqual, "initial_onboarding")
			})
		})

		convey.Convey("When the profile is read from a file", func() {
			path := filepath.Join(t.TempDir(), "profile.json")
			convey.So(os.WriteFile(path, []byte(profile), 0o600), convey.ShouldBeNil)
			var out bytes.Buffer
			root := newTestRoot(classifyCmd)
			root.SetOut(&out)
			root.SetArgs([]string{"classify", path})

			convey.Convey("Then it succeeds", func() {
				convey.So(root.ExecuteContext(context.Background()), convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, `"effective_months"`)
			})
		})

		convey.Convey("When the profile is invalid", func() {
			root := newTestRoot(classifyCmd)
			root.SetIn(strings.NewReader(`{"training_background":{"current_consecutive_months":24,"total_chronological_months":12}}`))
			root.SetOut(&bytes.Buffer{})
			root.SetArgs([]string{"classify"})

			convey.Convey("Then it fails", func() {
				convey.So(root.ExecuteContext(context.Background()), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestAuditCommand(t *testing.T) {
	convey.Convey("Given an empty in-memory store", t, func() {
		_ = os.Setenv("TRAINAGE_STORE_DRIVER", "memory")
		defer func() { _ = os.Unsetenv("TRAINAGE_STORE_DRIVER") }()

		convey.Convey("When a sweep is run", func() {
			var out bytes.Buffer
			root := newTestRoot(auditCmd)
			root.SetOut(&out)
			root.SetArgs([]string{"audit"})
			err := root.ExecuteContext(context.Background())

			convey.Convey("Then an empty summary is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, `"users": 0`)
			})
		})

		convey.Convey("When history is requested for an unknown user", func() {
			root := newTestRoot(historyCmd)
			root.SetOut(&bytes.Buffer{})
			root.SetArgs([]string{"history", "ghost"})

			convey.Convey("Then it returns an empty list", func() {
				convey.So(root.ExecuteContext(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}
