package crud

import (
	"context"
	"fmt"

	"pomegranate/pkg/logger"
)

// CascadeExecutor deletes dependent rows ahead of their parents.
type CascadeExecutor struct {
	repo Repository
}

// NewCascadeExecutor creates a CascadeExecutor.
func NewCascadeExecutor(repo Repository) *CascadeExecutor {
	return &CascadeExecutor{repo: repo}
}

// Run applies rules in declared order for the given parent keys. Each rule is
// a single statement; a self-referential rule removes one level of children.
// Callers run it inside the delete transaction so a failing rule rolls back
// the rules before it.
func (e *CascadeExecutor) Run(ctx context.Context, rules []CascadeRule, keys []any) error {
	if len(keys) == 0 {
		return nil
	}
	for _, rule := range rules {
		n, err := e.repo.DeleteWhere(ctx, rule.Table, rule.Column, keys, rule.Condition)
		if err != nil {
			return fmt.Errorf("cascade %s.%s: %w", rule.Table, rule.Column, err)
		}
		if n > 0 {
			logger.Debug(ctx, "cascade delete",
				"table", rule.Table,
				"column", rule.Column,
				"rows", n,
			)
		}
	}
	return nil
}
