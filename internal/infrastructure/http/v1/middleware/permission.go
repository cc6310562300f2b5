package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "pomegranate/internal/core/context"
	"pomegranate/internal/domain/crud"
)

// RequireAccess gates an entity's routes by its declared access level.
// Admins reach every entity.
func RequireAccess(access crud.Access) gin.HandlerFunc {
	switch access {
	case crud.Authenticated:
		return RequireKind(appctx.KindAdmin, appctx.KindUser)
	default:
		return RequireKind(appctx.KindAdmin)
	}
}
