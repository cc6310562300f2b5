package social

import (
	"context"
	"fmt"
	"time"

	"pomegranate/internal/core/id"
	"pomegranate/internal/domain/crud"
)

// SessionTTL is the lifetime of a newly created session.
const SessionTTL = 30 * 24 * time.Hour

type sessionHooks struct {
	crud.NopHooks
	store Store
	now   func() time.Time
}

func (h *sessionHooks) BeforeCreate(ctx context.Context, data crud.Record) error {
	if err := mustExist(ctx, h.store, "users", data["user_id"], "user"); err != nil {
		return err
	}
	refresh, err := id.NewSecret(32)
	if err != nil {
		return fmt.Errorf("generate refresh token: %w", err)
	}
	data["token"] = id.NewToken()
	data["refresh_token"] = refresh
	data["expires_at"] = h.now().Add(SessionTTL)
	if !data.Has("user_agent") {
		data["user_agent"] = ""
	}
	data.SetDefault("is_active", int64(1))
	data["is_active"] = flag(data["is_active"])
	return nil
}

func (h *sessionHooks) BeforeUpdate(_ context.Context, _ any, data crud.Record) error {
	if v, ok := data["is_active"]; ok {
		data["is_active"] = flag(v)
	}
	return nil
}
