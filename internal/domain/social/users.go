package social

import (
	"context"
	"strings"
	"time"

	appctx "pomegranate/internal/core/context"
	"pomegranate/internal/domain/auth"
	"pomegranate/internal/domain/crud"
	"pomegranate/pkg/logger"
)

const geoTimeout = 2 * time.Second

type userHooks struct {
	crud.NopHooks
	geo GeoResolver
}

// PrepareCreate fills a missing location from the caller's IP before the
// write transaction opens, so a slow lookup never holds a connection.
func (h *userHooks) PrepareCreate(ctx context.Context, data crud.Record) error {
	if data.String("location") == "" {
		data["location"] = h.locate(ctx)
	}
	return nil
}

func (h *userHooks) BeforeCreate(_ context.Context, data crud.Record) error {
	plain := data.String("password")
	if plain == "" {
		plain = auth.DefaultPassword
	}
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return err
	}
	data["password"] = hash

	for _, f := range []string{"avatar", "bio", "location"} {
		if !data.Has(f) {
			data[f] = ""
		}
	}
	if v, ok := data["is_active"]; ok {
		data["is_active"] = flag(v)
	}
	return nil
}

func (h *userHooks) BeforeUpdate(_ context.Context, _ any, data crud.Record) error {
	for _, f := range []string{"is_active", "is_verified"} {
		if v, ok := data[f]; ok {
			data[f] = flag(v)
		}
	}
	return nil
}

// locate resolves the caller's location, returning "" on any failure.
func (h *userHooks) locate(ctx context.Context) string {
	ip := appctx.GetClientIP(ctx)
	if h.geo == nil || ip == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, geoTimeout)
	defer cancel()
	loc, err := h.geo.Locate(ctx, ip)
	if err != nil {
		logger.Debug(ctx, "geo lookup failed", "ip", ip, "error", err)
		return ""
	}
	return loc
}

// flag maps a truthy request value to 1 and anything else to 0.
func flag(v any) int64 {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
	case int64:
		if t != 0 {
			return 1
		}
	case float64:
		if t != 0 {
			return 1
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return 0
		}
		return 1
	}
	return 0
}
