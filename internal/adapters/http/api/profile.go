package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	model "github.com/okian/trainage/internal/domain/model"
)

// ProfileDependencies stores onboarding profiles.
type ProfileDependencies interface {
	SaveProfile(ctx context.Context, p model.Profile) error
}

// ProfileHandler handles profile requests.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandlePutProfile handles PUT /v1/users/:id/profile requests.
// The path id wins when the body omits user_id.
func (h *ProfileHandler) HandlePutProfile(c *gin.Context) {
	const op = "api.put_profile"
	var p model.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		writeDomainError(c, wrapKind(op, ErrBadRequest, err))
		return
	}
	userID := c.Param("id")
	switch p.UserID {
	case "":
		p.UserID = userID
	case userID:
	default:
		writeDomainError(c, wrapKind(op, ErrMismatch, nil))
		return
	}
	if err := h.deps.SaveProfile(c.Request.Context(), p); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "user_id": p.UserID})
}
