// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "pomegranate/internal/core/context"
	"pomegranate/internal/domain/auth"
	"pomegranate/internal/domain/crud"
	"pomegranate/internal/infrastructure/http/v1/handlers"
	"pomegranate/internal/infrastructure/http/v1/middleware"
	"pomegranate/internal/infrastructure/imagehost"
	"pomegranate/internal/metadata"
	"pomegranate/pkg/logger"
)

// AdminBase is the mount point of the generated entity routes.
const AdminBase = "/api/admin"

// RouterConfig holds router dependencies. Optional collaborators disable
// their routes when nil.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Database backs the readiness check
	Database handlers.Database
	Driver   string

	// AuthService for admin login; its validator guards protected routes
	AuthService *auth.Service

	// Entities are the registered CRUD route sets
	Entities *crud.Registry

	// MetadataRegistry describes Entities for admin clients
	MetadataRegistry *metadata.Registry

	// Idempotency enables X-Idempotency-Key replay when set
	Idempotency middleware.IdempotencyStore

	// Audit serves entity history when set
	Audit handlers.AuditHistory

	// Uploader enables the upload endpoints when set
	Uploader handlers.Uploader

	// Surveys serves user questionnaire responses when set
	Surveys handlers.SurveyResponses

	// Metrics records HTTP metrics when set
	Metrics middleware.HTTPMetrics

	// MetricsHandler is served on /metrics when set
	MetricsHandler http.Handler

	// Debug selects gin debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()
	router.MaxMultipartMemory = handlers.MaxUploadFiles * imagehost.MaxImageBytes

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.ErrorHandler())
	router.NoRoute(middleware.NoRoute())

	if cfg.Database != nil {
		healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.Driver)
		health := router.Group("/health")
		{
			health.GET("/live", healthHandler.Live)
			health.GET("/ready", healthHandler.Ready)
			health.GET("/info", healthHandler.Info)
		}
	}
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	if cfg.AuthService == nil {
		return router
	}

	base := handlers.NewBaseHandler()
	validator := cfg.AuthService.Validator()
	api := router.Group("/api")

	registerAuthRoutes(api, base, cfg)

	protected := api.Group("")
	protected.Use(middleware.Auth(validator))
	if cfg.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.Idempotency))
	}

	admin := protected.Group("/admin")
	registerAdminRoutes(admin, base, cfg)
	registerUploadRoutes(protected, base, cfg)
	registerSurveyRoutes(protected, base, cfg)

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	public := api.Group("/auth/admin")
	protected := api.Group("/auth/admin")
	protected.Use(middleware.Auth(cfg.AuthService.Validator()))

	authHandler.RegisterRoutes(public, protected)
}

// registerAdminRoutes registers entity, metadata and audit endpoints.
func registerAdminRoutes(admin *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.MetadataRegistry != nil {
		h := handlers.NewMetadataHandler(base, cfg.MetadataRegistry, AdminBase)
		meta := admin.Group("")
		meta.Use(middleware.RequireKind(appctx.KindAdmin))
		{
			meta.GET("/meta", h.ListEntities)
			meta.GET("/meta/:name", h.GetEntity)
			meta.GET("/menu", h.Menu)
		}
	}

	if cfg.Entities == nil {
		return
	}
	if cfg.Audit != nil {
		h := handlers.NewAuditHandler(base, cfg.Entities, cfg.Audit)
		admin.GET("/audit/:entity/:id", middleware.RequireKind(appctx.KindAdmin), h.History)
	}
	RegisterAllEntityRoutes(admin, base, cfg.Entities)
}

// registerUploadRoutes registers image upload endpoints.
func registerUploadRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Uploader == nil {
		return
	}
	h := handlers.NewUploadHandler(base, cfg.Uploader)
	upload := rg.Group("/upload")
	{
		upload.POST("/single", h.Single)
		upload.POST("/multiple", h.Multiple)
		upload.POST("/base64", h.Base64)
	}
}

// registerSurveyRoutes registers the user questionnaire endpoints.
func registerSurveyRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Surveys == nil {
		return
	}
	h := handlers.NewSurveyHandler(base, cfg.Surveys)
	responses := rg.Group("/surveys/responses")
	responses.Use(middleware.RequireKind(appctx.KindUser))
	h.RegisterRoutes(responses)
}
