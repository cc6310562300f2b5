package handlers

import (
	"github.com/gin-gonic/gin"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/metadata"
)

type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
	menuBase string
}

// NewMetadataHandler serves registry contents; menu paths are prefixed with
// menuBase.
func NewMetadataHandler(base *BaseHandler, registry *metadata.Registry, menuBase string) *MetadataHandler {
	return &MetadataHandler{
		BaseHandler: base,
		registry:    registry,
		menuBase:    menuBase,
	}
}

// ListEntities returns every registered entity definition.
// GET /api/admin/meta
func (h *MetadataHandler) ListEntities(c *gin.Context) {
	h.OK(c, h.registry.List())
}

// GetEntity returns one entity definition by name or route.
// GET /api/admin/meta/:name
func (h *MetadataHandler) GetEntity(c *gin.Context) {
	name := c.Param("name")
	if def, ok := h.registry.Get(name); ok {
		h.OK(c, def)
		return
	}
	if def, ok := h.registry.ByRoute(name); ok {
		h.OK(c, def)
		return
	}
	h.Error(c, apperror.NewNotFound("entity", name))
}

// Menu returns the admin navigation tree.
// GET /api/admin/menu
func (h *MetadataHandler) Menu(c *gin.Context) {
	h.OK(c, h.registry.Menu(h.menuBase))
}
