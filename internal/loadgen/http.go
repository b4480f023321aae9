package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Do sends a request with an optional JSON body and returns the status and body.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func userURL(cfg *Config, userID, suffix string) string {
	return cfg.BaseURL + "/v1/users/" + userID + suffix
}

// saveProfiles PUTs every profile with cfg.Workers requests in flight.
func saveProfiles(ctx context.Context, cfg *Config, client *HTTPClient, trainees []Trainee, stats *Stats) error {
	var saved, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, t := range trainees {
		g.Go(func() error {
			status, _, err := client.Do(gctx, http.MethodPut, userURL(cfg, t.Profile.UserID, "/profile"), t.Profile)
			if err != nil || status != http.StatusOK {
				failed.Add(1)
				return nil
			}
			saved.Add(1)
			return nil
		})
	}
	err := g.Wait()
	stats.ProfilesSaved = int(saved.Load())
	stats.ProfilesFailed = int(failed.Load())
	logger.Get().Info(ctx, "profiles saved",
		logger.Int("saved", stats.ProfilesSaved),
		logger.Int("failed", stats.ProfilesFailed))
	return err
}

type workoutBody struct {
	WorkoutID string              `json:"workout_id"`
	Date      string              `json:"date"`
	Exercises []model.ExerciseLog `json:"exercises"`
}

type submission struct {
	userID string
	body   workoutBody
}

// submitWorkouts posts every workout, then re-sends the first
// cfg.DuplicatePercent of them so the dedupe path is exercised.
func submitWorkouts(ctx context.Context, cfg *Config, client *HTTPClient, trainees []Trainee, stats *Stats) error {
	var all []submission
	for _, t := range trainees {
		for _, w := range t.Workouts {
			all = append(all, submission{
				userID: w.UserID,
				body: workoutBody{
					WorkoutID: w.ID,
					Date:      w.Date.Format(time.RFC3339),
					Exercises: w.Exercises,
				},
			})
		}
	}
	logger.Get().Info(ctx, "submitting workouts",
		logger.Int("workouts", len(all)),
		logger.Int("workers", cfg.Workers))

	var accepted, duplicate, failed, submitted atomic.Int64
	post := func(batch []submission) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, s := range batch {
			g.Go(func() error {
				submitted.Add(1)
				switch submitSingleWorkout(gctx, client, userURL(cfg, s.userID, "/workouts"), s.body) {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
				return nil
			})
		}
		return g.Wait()
	}

	if err := post(all); err != nil {
		return err
	}
	if n := len(all) * cfg.DuplicatePercent / 100; n > 0 {
		if err := post(all[:n]); err != nil {
			return err
		}
	}

	stats.WorkoutsSubmitted = int(submitted.Load())
	stats.WorkoutsAccepted = int(accepted.Load())
	stats.WorkoutsDuplicate = int(duplicate.Load())
	stats.WorkoutsFailed = int(failed.Load())
	logger.Get().Info(ctx, "workout submission completed",
		logger.Int("accepted", stats.WorkoutsAccepted),
		logger.Int("duplicate", stats.WorkoutsDuplicate),
		logger.Int("failed", stats.WorkoutsFailed))
	return nil
}

const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

func submitSingleWorkout(ctx context.Context, client *HTTPClient, url string, body workoutBody) string {
	status, data, err := client.Do(ctx, http.MethodPost, url, body)
	if err != nil {
		return resultFailed
	}
	switch status {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(data, &ack); err == nil && ack.Duplicate {
			return resultDuplicate
		}
		return resultFailed
	default:
		return resultFailed
	}
}

// runAudits triggers one manual audit per trainee.
func runAudits(ctx context.Context, cfg *Config, client *HTTPClient, trainees []Trainee, stats *Stats) error {
	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, t := range trainees {
		g.Go(func() error {
			status, _, err := client.Do(gctx, http.MethodPost, userURL(cfg, t.Profile.UserID, "/audit"), nil)
			if err != nil || status != http.StatusOK {
				failed.Add(1)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	err := g.Wait()
	stats.AuditsRun = int(ok.Load())
	stats.AuditsFailed = int(failed.Load())
	return err
}

type tierResponse struct {
	UserID string     `json:"user_id"`
	Tier   model.Tier `json:"tier"`
}

// retrieveTiers reads the current tier of every trainee.
func retrieveTiers(ctx context.Context, cfg *Config, client *HTTPClient, trainees []Trainee) (map[string]model.Tier, error) {
	tiers := make([]model.Tier, len(trainees))
	found := make([]bool, len(trainees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, t := range trainees {
		g.Go(func() error {
			status, data, err := client.Do(gctx, http.MethodGet, userURL(cfg, t.Profile.UserID, "/tier"), nil)
			if err != nil || status != http.StatusOK {
				return nil
			}
			var resp tierResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return nil
			}
			tiers[i] = resp.Tier
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]model.Tier, len(trainees))
	for i, t := range trainees {
		if found[i] {
			out[t.Profile.UserID] = tiers[i]
		}
	}
	return out, nil
}
