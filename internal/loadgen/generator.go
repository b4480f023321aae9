package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/logger"
)

const randomFloatDivisor = 1000000

// Persona shapes the generated profile and training log.
type Persona string

const (
	PersonaNovice  Persona = "novice"
	PersonaSteady  Persona = "steady"
	PersonaVeteran Persona = "veteran"
)

const (
	personaCount     = 3
	noviceStartKg    = 60.0
	noviceStepKg     = 2.5
	veteranWorkingKg = 180.0
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func getRandomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateTrainees creates cfg.Users trainees with unique ids, cycling
// through the personas.
func generateTrainees(ctx context.Context, cfg *Config, now time.Time) ([]Trainee, error) {
	logger.Get().Info(ctx, "generating trainees",
		logger.Int("users", cfg.Users),
		logger.Int("workoutsPerUser", cfg.WorkoutsPerUser))

	personas := []Persona{PersonaNovice, PersonaSteady, PersonaVeteran}
	out := make([]Trainee, cfg.Users)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		userID := uuid.NewString()
		p := personas[i%personaCount]
		out[i] = Trainee{
			Persona:  p,
			Profile:  generateProfile(userID, p),
			Workouts: generateWorkouts(userID, p, cfg.WorkoutsPerUser, now),
		}
	}
	return out, nil
}

func generateProfile(userID string, p Persona) model.Profile {
	var consecutive, total, sessions, rating float64
	switch p {
	case PersonaNovice:
		consecutive = 1 + getRandomFloat()*3
		total = consecutive + getRandomFloat()*3
		sessions = 2 + getRandomFloat()
		rating = 2
	case PersonaSteady:
		consecutive = 10 + getRandomFloat()*8
		total = consecutive + 6 + getRandomFloat()*12
		sessions = 3 + getRandomFloat()
		rating = 3
	default:
		consecutive = 36 + getRandomFloat()*24
		total = consecutive + 24 + getRandomFloat()*36
		sessions = 4 + getRandomFloat()*2
		rating = 4 + float64(getRandomInt(2))
	}
	return model.Profile{
		UserID: userID,
		TrainingBackground: model.TrainingBackground{
			CurrentConsecutiveMonths: consecutive,
			TotalChronologicalMonths: total,
			AverageSessionsPerWeek:   sessions,
			HasUsedPeriodization:     p == PersonaVeteran,
			UnderstandsRPE:           p != PersonaNovice,
		},
		MovementCompetencies: model.MovementCompetencies{SelfRating: &rating},
	}
}

// generateWorkouts logs n sessions on consecutive days ending yesterday.
// Novices add weight every session; veterans hold a heavy load with RPE.
func generateWorkouts(userID string, p Persona, n int, now time.Time) []model.Workout {
	out := make([]model.Workout, n)
	for i := 0; i < n; i++ {
		date := now.AddDate(0, 0, i-n).UTC().Truncate(time.Hour)
		var ex []model.ExerciseLog
		switch p {
		case PersonaNovice:
			ex = []model.ExerciseLog{
				lift("Squat", model.CategoryCompound, noviceStartKg+noviceStepKg*float64(i), nil),
				lift("Bicep Curl", model.CategoryIsolation, 10, nil),
				lift("Leg Extension", model.CategoryIsolation, 30, nil),
				lift("Calf Raise", model.CategoryIsolation, 40, nil),
			}
		case PersonaSteady:
			ex = []model.ExerciseLog{
				lift("Squat", model.CategoryCompound, 100+float64(i%3)*2.5, nil),
				lift("Bench Press", model.CategoryCompound, 80, nil),
				lift("Row", model.CategoryAccessory, 60, nil),
			}
		default:
			rpe := []float64{8, 8.5, 9}
			ex = []model.ExerciseLog{
				lift("Squat", model.CategoryCompound, veteranWorkingKg, rpe),
				lift("Deadlift", model.CategoryCompound, veteranWorkingKg+40, rpe),
				lift("Overhead Press", model.CategoryCompound, 70, rpe),
			}
		}
		out[i] = model.Workout{
			ID:        fmt.Sprintf("%s-w%03d", userID, i),
			UserID:    userID,
			Date:      date,
			Exercises: ex,
		}
	}
	return out
}

func lift(name string, cat model.ExerciseCategory, kg float64, rpe []float64) model.ExerciseLog {
	return model.ExerciseLog{
		Name:     name,
		Category: cat,
		Reps:     []int{5, 5, 5},
		Weights:  []float64{kg, kg, kg},
		RPE:      rpe,
	}
}
