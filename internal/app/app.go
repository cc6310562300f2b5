// Package app assembles the process-wide collaborators from Config. The
// server and the admin CLI share it so both run the same entity hooks.
package app

import (
	"context"
	"errors"
	"fmt"

	"pomegranate/internal/config"
	"pomegranate/internal/domain/auth"
	"pomegranate/internal/domain/crud"
	"pomegranate/internal/domain/social"
	"pomegranate/internal/domain/survey"
	"pomegranate/internal/infrastructure/geoip"
	"pomegranate/internal/infrastructure/imagehost"
	"pomegranate/internal/infrastructure/observability"
	"pomegranate/internal/infrastructure/storage/sqlstore"
	"pomegranate/internal/metadata"
	"pomegranate/pkg/logger"
)

// Version is stamped at build time.
var Version = "dev"

// App holds the wired collaborators. Images and Geo are nil when their
// endpoints are not configured.
type App struct {
	Config    *config.Config
	DB        *sqlstore.DB
	Tx        *sqlstore.TxManager
	Audit     *sqlstore.AuditLog
	Entities  *crud.Registry
	Metadata  *metadata.Registry
	Auth      *auth.Service
	Surveys   *survey.Service
	Telemetry *observability.Provider
	Metrics   *observability.Metrics
	Images    *imagehost.Client
	Geo       *geoip.Resolver

	// Idempotency is nil when idempotency.enabled is false.
	Idempotency *sqlstore.IdempotencyStore
}

// New opens the database, runs migrations when configured and builds the
// entity registry. Close releases everything New acquired.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	tel, err := observability.Setup(ctx, observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   Version,
		Environment:      cfg.Observability.Environment,
		TracingEndpoint:  cfg.Observability.TracingEndpoint,
		TracingInsecure:  cfg.Observability.TracingInsecure,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
	})
	if err != nil {
		return nil, err
	}
	a.Telemetry = tel

	a.Metrics, err = observability.NewMetrics(tel.Meter(cfg.Observability.ServiceName))
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	dbCfg := sqlstore.DefaultConfig(cfg.Database.Driver, cfg.Database.DSN)
	if cfg.Database.MaxOpenConns > 0 {
		dbCfg.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		dbCfg.MaxIdleConns = cfg.Database.MaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		dbCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	}
	dbCfg.StatementTimeout = cfg.Database.StatementTimeout

	a.DB, err = sqlstore.Open(ctx, dbCfg)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	logger.Info(ctx, "database connected", "driver", cfg.Database.Driver)

	if cfg.Database.MigrateOnStart {
		applied, err := sqlstore.Migrate(ctx, a.DB)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		logger.Info(ctx, "migrations applied", "count", applied)
	}

	a.Tx = sqlstore.NewTxManager(a.DB, dbCfg.StatementTimeout)
	a.Audit, err = sqlstore.NewAuditLog(a.Tx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	deps := social.Deps{
		Store: sqlstore.NewSocialStore(a.Tx),
		Views: sqlstore.NewViews(a.Tx),
	}
	if cfg.ImageHost.Endpoint != "" {
		a.Images = imagehost.New(imagehost.Config{
			Endpoint:   cfg.ImageHost.Endpoint,
			Token:      cfg.ImageHost.Token,
			Timeout:    cfg.ImageHost.Timeout,
			MaxRetries: cfg.ImageHost.MaxRetries,
		})
		deps.Images = a.Images
	}
	if cfg.GeoIP.Endpoint != "" {
		a.Geo = geoip.New(geoip.Config{
			Endpoint:  cfg.GeoIP.Endpoint,
			Timeout:   cfg.GeoIP.Timeout,
			CacheTTL:  cfg.GeoIP.CacheTTL,
			CacheSize: cfg.GeoIP.CacheSize,
		})
		a.Geo.Start(ctx)
		deps.Geo = a.Geo
	}

	a.Entities, err = crud.NewRegistry(crud.Deps{
		Repo:     sqlstore.NewEntityRepo(a.Tx),
		Tx:       a.Tx,
		Auditor:  a.Audit,
		Observer: a.Metrics,
		MaxLimit: cfg.List.MaxLimit,
	}, social.Entities(deps)...)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("register entities: %w", err)
	}
	a.Metadata = metadata.RegisterAll(a.Entities)

	a.Auth = auth.NewService(sqlstore.NewAdminRepo(a.Tx), auth.NewJWTService(auth.JWTConfig{
		Secret:          cfg.Auth.JWTSecret,
		Issuer:          cfg.Auth.Issuer,
		AccessTokenTTL:  cfg.Auth.AccessTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTTL,
	}))

	a.Surveys = survey.NewService(a.Tx, sqlstore.NewSurveyStore(a.Tx))

	if cfg.Idempotency.Enabled {
		a.Idempotency = sqlstore.NewIdempotencyStore(a.Tx, cfg.Idempotency.TTL)
	}

	return a, nil
}

// Close stops background work, closes the database and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Geo != nil {
		a.Geo.Stop()
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Telemetry != nil {
		errs = append(errs, a.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
