package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	model "github.com/okian/trainage/internal/domain/model"
)

const defaultHistoryLimit = 20

// TierDependencies defines the read path behind the tier endpoints.
type TierDependencies interface {
	EffectiveTier(ctx context.Context, userID string) (model.Tier, error)
	Detail(ctx context.Context, userID string) (model.ClassificationConfidence, error)
	History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error)
}

// TierHandler handles tier, classification and history requests.
type TierHandler struct {
	deps TierDependencies
}

// NewTierHandler creates a new tier handler.
func NewTierHandler(deps TierDependencies) *TierHandler {
	return &TierHandler{deps: deps}
}

type tierResponse struct {
	UserID string     `json:"user_id"`
	Tier   model.Tier `json:"tier"`
}

// HandleGetTier handles GET /v1/users/:id/tier requests.
func (h *TierHandler) HandleGetTier(c *gin.Context) {
	userID := c.Param("id")
	tier, err := h.deps.EffectiveTier(c.Request.Context(), userID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, tierResponse{UserID: userID, Tier: tier})
}

// HandleGetClassification handles GET /v1/users/:id/classification requests.
func (h *TierHandler) HandleGetClassification(c *gin.Context) {
	detail, err := h.deps.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// HandleGetHistory handles GET /v1/users/:id/history?limit= requests.
func (h *TierHandler) HandleGetHistory(c *gin.Context) {
	const op = "api.get_history"
	limit, err := parseLimit(c)
	if err != nil {
		writeDomainError(c, wrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("id"), "entries": entries})
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	return strconv.Atoi(raw)
}
