package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okian/trainage/internal/audit"
	model "github.com/okian/trainage/internal/domain/model"
)

// AuditDependencies runs manual audits and lists past runs.
type AuditDependencies interface {
	Audit(ctx context.Context, userID string) (audit.Result, error)
	AuditRecords(ctx context.Context, userID string, limit int) ([]model.AuditRecord, error)
}

// AuditHandler handles audit requests.
type AuditHandler struct {
	deps AuditDependencies
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(deps AuditDependencies) *AuditHandler {
	return &AuditHandler{deps: deps}
}

// HandlePostAudit handles POST /v1/users/:id/audit requests.
// The audit runs synchronously; a skipped audit is still a 200.
func (h *AuditHandler) HandlePostAudit(c *gin.Context) {
	res, err := h.deps.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleGetAudits handles GET /v1/users/:id/audits?limit= requests.
func (h *AuditHandler) HandleGetAudits(c *gin.Context) {
	const op = "api.get_audits"
	limit, err := parseLimit(c)
	if err != nil {
		writeDomainError(c, wrapKind(op, ErrBadRequest, err))
		return
	}
	records, err := h.deps.AuditRecords(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("id"), "records": records})
}
