package loadgen

import (
	"context"
	"fmt"

	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/logger"
)

// verifyResults checks that every saved trainee has a real tier and
// tallies the tier distribution.
func verifyResults(ctx context.Context, trainees []Trainee, tiers map[string]model.Tier, stats *Stats) error {
	stats.Tiers = make(map[model.Tier]int)
	var missing int
	for _, t := range trainees {
		tier, ok := tiers[t.Profile.UserID]
		if !ok {
			missing++
			continue
		}
		if !tier.IsReal() {
			return fmt.Errorf("%w: user %s has tier %s", ErrVerification, t.Profile.UserID, tier)
		}
		stats.Tiers[tier]++
	}
	stats.TiersRetrieved = len(trainees) - missing

	if missing > stats.ProfilesFailed {
		return fmt.Errorf("%w: %d trainees without a tier", ErrVerification, missing)
	}
	if stats.WorkoutsFailed > 0 {
		logger.Get().Warn(ctx, "some workouts were rejected", logger.Int("failed", stats.WorkoutsFailed))
	}
	logger.Get().Info(ctx, "result verification completed",
		logger.Int("tiersRetrieved", stats.TiersRetrieved))
	return nil
}
