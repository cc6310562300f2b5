package v1

import (
	"github.com/gin-gonic/gin"

	"pomegranate/internal/domain/crud"
	"pomegranate/internal/infrastructure/http/v1/handlers"
	"pomegranate/internal/infrastructure/http/v1/middleware"
)

// RegisterEntityRoutes mounts every generated route of rs on group, gated by
// the entity's access level.
//
// Usage:
//
//	rs, _ := registry.Get("posts")
//	RegisterEntityRoutes(admin, handlers.NewBaseHandler(), rs)
func RegisterEntityRoutes(group *gin.RouterGroup, base *handlers.BaseHandler, rs *crud.RouteSet) {
	h := handlers.NewEntityHandler(base, rs)
	access := middleware.RequireAccess(rs.Config().Access)
	for _, r := range rs.Routes() {
		group.Handle(r.Method, r.Path, access, h.For(r.Operation))
	}
}

// RegisterAllEntityRoutes mounts every RouteSet in registration order.
func RegisterAllEntityRoutes(group *gin.RouterGroup, base *handlers.BaseHandler, reg *crud.Registry) {
	for _, rs := range reg.All() {
		RegisterEntityRoutes(group, base, rs)
	}
}
