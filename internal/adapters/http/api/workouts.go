package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	model "github.com/okian/trainage/internal/domain/model"
)

// WorkoutDependencies logs workouts and queues their audits.
type WorkoutDependencies interface {
	// LogWorkout reports duplicate=true when the workout id was already logged.
	LogWorkout(ctx context.Context, w model.Workout) (duplicate bool, err error)
}

// WorkoutHandler handles workout requests.
type WorkoutHandler struct {
	deps WorkoutDependencies
}

// NewWorkoutHandler creates a new workout handler.
func NewWorkoutHandler(deps WorkoutDependencies) *WorkoutHandler {
	return &WorkoutHandler{deps: deps}
}

// workoutRequest is the body of POST /v1/users/:id/workouts.
type workoutRequest struct {
	WorkoutID string              `json:"workout_id"`
	Date      string              `json:"date"`
	Exercises []model.ExerciseLog `json:"exercises"`
}

func (r workoutRequest) toWorkout(userID string) (model.Workout, error) {
	if strings.TrimSpace(r.WorkoutID) == "" {
		return model.Workout{}, wrapKind("missing workout_id", ErrBadRequest, nil)
	}
	date, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		return model.Workout{}, wrapKind("invalid date; must be RFC3339", ErrBadRequest, nil)
	}
	return model.Workout{ID: r.WorkoutID, UserID: userID, Date: date.UTC(), Exercises: r.Exercises}, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostWorkout handles POST /v1/users/:id/workouts requests.
func (h *WorkoutHandler) HandlePostWorkout(c *gin.Context) {
	const op = "api.post_workout"
	var req workoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeDomainError(c, wrapKind(op, ErrBadRequest, err))
		return
	}
	w, err := req.toWorkout(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	duplicate, err := h.deps.LogWorkout(c.Request.Context(), w)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if duplicate {
		c.JSON(http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	c.JSON(http.StatusAccepted, ackResponse{Status: "accepted"})
}
