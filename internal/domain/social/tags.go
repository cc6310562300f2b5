package social

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/core/id"
	"pomegranate/internal/domain/crud"
)

const tempTagPrefix = "temp_"

// resolveTags turns the request's tags into tag ids. Tags arrive as names or
// as {id, name, is_new} objects; new or temporary ones are upserted by name.
func resolveTags(ctx context.Context, store Store, raw any) ([]int64, error) {
	var ids []int64
	add := func(n int64) {
		if !slices.Contains(ids, n) {
			ids = append(ids, n)
		}
	}

	for _, t := range asSlice(raw) {
		switch v := t.(type) {
		case string:
			name := strings.TrimSpace(v)
			if name == "" {
				continue
			}
			tid, err := store.EnsureTag(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("ensure tag %q: %w", name, err)
			}
			add(tid)
		case map[string]any:
			tag := crud.Record(v)
			name := strings.TrimSpace(tag.String("name"))
			isNew, _ := tag["is_new"].(bool)
			if isNew || strings.HasPrefix(tag.String("id"), tempTagPrefix) {
				if name == "" {
					continue
				}
				tid, err := store.EnsureTag(ctx, name)
				if err != nil {
					return nil, fmt.Errorf("ensure tag %q: %w", name, err)
				}
				add(tid)
				continue
			}
			key, err := id.ParseAny(tag["id"], id.Int)
			if err != nil {
				return nil, apperror.NewValidation(fmt.Sprintf("invalid tag id %v", tag["id"]))
			}
			add(key.(int64))
		}
	}
	return ids, nil
}

// adjustTagUse changes use_count once per link, grouping repeated tags.
func adjustTagUse(ctx context.Context, store Store, tagIDs []int64, sign int64) error {
	counts := make(map[int64]int64, len(tagIDs))
	order := make([]int64, 0, len(tagIDs))
	for _, t := range tagIDs {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	for _, t := range order {
		if err := store.AdjustCounter(ctx, "tags", "use_count", map[string]any{"id": t}, sign*counts[t]); err != nil {
			return fmt.Errorf("adjust tag %d use_count: %w", t, err)
		}
	}
	return nil
}
