package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/core/id"
	"pomegranate/internal/domain/crud"
	"pomegranate/internal/infrastructure/storage/sqlstore"
)

// AuditHistory reads audit entries for one row.
type AuditHistory interface {
	History(ctx context.Context, entity string, key any, limit int) ([]sqlstore.AuditRecord, error)
}

// AuditHandler exposes the audit trail of registered entities.
type AuditHandler struct {
	*BaseHandler
	entities *crud.Registry
	history  AuditHistory
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, entities *crud.Registry, history AuditHistory) *AuditHandler {
	return &AuditHandler{BaseHandler: base, entities: entities, history: history}
}

// History handles GET /audit/:entity/:id?limit=
func (h *AuditHandler) History(c *gin.Context) {
	name := c.Param("entity")
	rs, ok := h.entities.Get(name)
	if !ok {
		h.Error(c, apperror.NewNotFound("entity", name))
		return
	}
	key, err := id.Parse(c.Param("id"), rs.Config().KeyKind)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	records, err := h.history.History(c.Request.Context(), rs.Config().Name, key, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, records)
}
