package handlers

import (
	"github.com/gin-gonic/gin"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/core/id"
	"pomegranate/internal/domain/crud"
	"pomegranate/internal/infrastructure/http/v1/dto"
)

// EntityHandler serves the generated operations of one entity.
type EntityHandler struct {
	*BaseHandler
	rs *crud.RouteSet
}

// NewEntityHandler creates a handler for rs.
func NewEntityHandler(base *BaseHandler, rs *crud.RouteSet) *EntityHandler {
	return &EntityHandler{BaseHandler: base, rs: rs}
}

// For returns the gin handler of op.
func (h *EntityHandler) For(op crud.Operation) gin.HandlerFunc {
	switch op {
	case crud.OpCreate:
		return h.Create
	case crud.OpUpdate:
		return h.Update
	case crud.OpDeleteOne:
		return h.DeleteOne
	case crud.OpDeleteMany:
		return h.DeleteMany
	case crud.OpGetOne:
		return h.GetOne
	case crud.OpGetList:
		return h.GetList
	}
	return nil
}

func (h *EntityHandler) key(c *gin.Context) (any, bool) {
	key, err := id.Parse(c.Param("id"), h.rs.Config().KeyKind)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return nil, false
	}
	return key, true
}

// Create handles POST /{route}.
func (h *EntityHandler) Create(c *gin.Context) {
	var body crud.Record
	if !h.BindJSON(c, &body) {
		return
	}

	key, err := h.rs.Create(c.Request.Context(), body)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IDResponse{ID: key})
}

// Update handles PUT /{route}/:id. Zero affected rows is a 404.
func (h *EntityHandler) Update(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	var body crud.Record
	if !h.BindJSON(c, &body) {
		return
	}

	affected, err := h.rs.Update(c.Request.Context(), key, body)
	if err != nil {
		h.Error(c, err)
		return
	}
	if affected == 0 {
		h.Error(c, apperror.NewNotFound(h.rs.Config().DisplayName(), key))
		return
	}
	h.OK(c, dto.AffectedResponse{Affected: affected})
}

// DeleteOne handles DELETE /{route}/:id.
func (h *EntityHandler) DeleteOne(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	if err := h.rs.DeleteOne(c.Request.Context(), key); err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "deleted")
}

// DeleteMany handles DELETE /{route} with body {ids: [...]}.
func (h *EntityHandler) DeleteMany(c *gin.Context) {
	var req dto.DeleteManyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	kind := h.rs.Config().KeyKind
	keys := make([]any, 0, len(req.IDs))
	for _, raw := range req.IDs {
		key, err := id.ParseAny(raw, kind)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid id in ids").WithDetail("id", raw))
			return
		}
		keys = append(keys, key)
	}

	affected, err := h.rs.DeleteMany(c.Request.Context(), keys)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AffectedResponse{Affected: affected})
}

// GetOne handles GET /{route}/:id.
func (h *EntityHandler) GetOne(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	rec, err := h.rs.GetOne(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// GetList handles GET /{route}?page&limit&sortBy&sortOrder&<filters>.
func (h *EntityHandler) GetList(c *gin.Context) {
	req := crud.NewListRequest(c.Request.URL.Query(), h.rs.MaxLimit())
	res, err := h.rs.GetList(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}
