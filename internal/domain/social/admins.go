package social

import (
	"context"
	"strings"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/domain/auth"
	"pomegranate/internal/domain/crud"
)

type adminHooks struct {
	crud.NopHooks
}

func (adminHooks) BeforeCreate(_ context.Context, data crud.Record) error {
	return hashPasswordField(data)
}

// BeforeUpdate hashes a new password. A present but blank password is
// rejected rather than stored.
func (adminHooks) BeforeUpdate(_ context.Context, _ any, data crud.Record) error {
	v, ok := data["password"]
	if !ok {
		return nil
	}
	if s, isStr := v.(string); v == nil || (isStr && strings.TrimSpace(s) == "") {
		return apperror.NewValidation("password must not be empty").WithDetail("field", "password")
	}
	return hashPasswordField(data)
}

func hashPasswordField(data crud.Record) error {
	hash, err := auth.HashPassword(data.String("password"))
	if err != nil {
		return err
	}
	data["password"] = hash
	return nil
}
