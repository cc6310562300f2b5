package social

import (
	"context"

	"pomegranate/internal/domain/crud"
)

// surveyHooks stores is_required as 0/1, defaulting to 0.
type surveyHooks struct {
	crud.NopHooks
}

func (surveyHooks) BeforeCreate(_ context.Context, data crud.Record) error {
	data.SetDefault("is_required", int64(0))
	if v, ok := data["is_required"]; ok {
		data["is_required"] = flag(v)
	}
	return nil
}

func (surveyHooks) BeforeUpdate(_ context.Context, _ any, data crud.Record) error {
	if v, ok := data["is_required"]; ok {
		data["is_required"] = flag(v)
	}
	return nil
}
