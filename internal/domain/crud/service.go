package crud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/core/tx"
	"pomegranate/pkg/logger"
)

// errNoRows rolls back an update whose target does not exist.
var errNoRows = errors.New("no rows matched")

// Service runs the write pipelines and the read path for one entity.
//
// Every write runs Validating -> PreHook -> Persisting -> PostHook in a single
// transaction. Post hooks run in a savepoint: their failure is logged and
// undone without failing the request.
type Service struct {
	cfg      *EntityConfig
	repo     Repository
	txm      tx.Manager
	cascade  *CascadeExecutor
	auditor  Auditor
	observer Observer
	maxLimit int
}

func newService(cfg *EntityConfig, deps Deps) *Service {
	return &Service{
		cfg:      cfg,
		repo:     deps.Repo,
		txm:      deps.Tx,
		cascade:  NewCascadeExecutor(deps.Repo),
		auditor:  deps.Auditor,
		observer: deps.Observer,
		maxLimit: deps.MaxLimit,
	}
}

// Config returns the entity config the service was built from.
func (s *Service) Config() *EntityConfig {
	return s.cfg
}

// MaxLimit is the page size cap applied to list requests.
func (s *Service) MaxLimit() int {
	if s.maxLimit <= 0 {
		return MaxLimit
	}
	return s.maxLimit
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveOperation(ctx, s.cfg.Name, op, time.Since(start), err)
	}
}

// Create validates data, runs hooks and inserts the row. It returns the new key.
func (s *Service) Create(ctx context.Context, data Record) (key any, err error) {
	defer func(start time.Time) { s.observe(ctx, "create", start, err) }(time.Now())

	data = data.Normalize()
	validator, custom := s.cfg.Hooks.(CreateValidator)
	if !custom {
		if err := s.checkRequired(data); err != nil {
			return nil, err
		}
	}
	if p, ok := s.cfg.Hooks.(CreatePreparer); ok {
		if err := p.PrepareCreate(ctx, data); err != nil {
			return nil, hookError(err)
		}
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if custom {
			if err := validator.ValidateCreate(ctx, data); err != nil {
				return hookError(err)
			}
		} else if err := s.checkUnique(ctx, data, nil); err != nil {
			return err
		}

		if err := s.cfg.Hooks.BeforeCreate(ctx, data); err != nil {
			return hookError(err)
		}

		row, err := data.Pick(s.cfg.Writable())
		if err != nil {
			return apperror.NewValidation(err.Error())
		}
		if len(row) == 0 {
			return apperror.NewValidation("no writable fields in request body")
		}

		key, err = s.repo.Insert(ctx, s.cfg, row)
		if err != nil {
			return fmt.Errorf("create %s: %w", s.cfg.Name, err)
		}

		if err := s.audit(ctx, key, ActionCreate, nil, row); err != nil {
			return err
		}

		s.runAfter(ctx, "after_create", key, func(ctx context.Context) error {
			return s.cfg.Hooks.AfterCreate(ctx, key, data)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Update writes the whitelisted fields present in data. It returns the number
// of rows matched; 0 means the key does not exist and nothing was written.
func (s *Service) Update(ctx context.Context, key any, data Record) (affected int64, err error) {
	defer func(start time.Time) { s.observe(ctx, "update", start, err) }(time.Now())

	if len(data) == 0 {
		return 0, apperror.NewValidation("request body is empty")
	}
	data = data.Normalize()

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// A missing row reports affected = 0 before any validation verdict.
		exists, err := s.repo.Exists(ctx, s.cfg.Table, map[string]any{s.cfg.PrimaryKey: key}, nil)
		if err != nil {
			return fmt.Errorf("update %s: %w", s.cfg.Name, err)
		}
		if !exists {
			return errNoRows
		}

		if err := s.checkUnique(ctx, data, key); err != nil {
			return err
		}

		if err := s.cfg.Hooks.BeforeUpdate(ctx, key, data); err != nil {
			return hookError(err)
		}

		row, err := data.Pick(s.cfg.UpdateFields)
		if err != nil {
			return apperror.NewValidation(err.Error())
		}

		// Only secondary data (e.g. tags) may have been sent; the hooks still run.
		affected = 1
		if len(row) > 0 {
			affected, err = s.repo.Update(ctx, s.cfg, key, row)
			if err != nil {
				return fmt.Errorf("update %s: %w", s.cfg.Name, err)
			}
		}
		if affected == 0 {
			return errNoRows
		}

		if err := s.audit(ctx, key, ActionUpdate, nil, row); err != nil {
			return err
		}

		s.runAfter(ctx, "after_update", key, func(ctx context.Context) error {
			return s.cfg.Hooks.AfterUpdate(ctx, key, data)
		})
		return nil
	})
	if errors.Is(err, errNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// DeleteOne runs the before-delete hook, the cascade rules and the primary
// delete. A missing key rolls everything back and returns NotFound.
func (s *Service) DeleteOne(ctx context.Context, key any) (err error) {
	defer func(start time.Time) { s.observe(ctx, "delete_one", start, err) }(time.Now())

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		before, err := s.snapshot(ctx, key)
		if err != nil {
			return err
		}

		if err := s.cfg.Hooks.BeforeDelete(ctx, key); err != nil {
			return hookError(err)
		}
		if err := s.cascade.Run(ctx, s.cfg.Cascades, []any{key}); err != nil {
			return err
		}

		n, err := s.repo.Delete(ctx, s.cfg, []any{key})
		if err != nil {
			return fmt.Errorf("delete %s: %w", s.cfg.Name, err)
		}
		if n == 0 {
			return apperror.NewNotFound(s.cfg.DisplayName(), key)
		}
		return s.audit(ctx, key, ActionDelete, before, nil)
	})
}

// DeleteMany deletes every key in one transaction. The before-delete-many
// hook sees the whole key list once. It returns the number of parent rows
// removed.
func (s *Service) DeleteMany(ctx context.Context, keys []any) (affected int64, err error) {
	defer func(start time.Time) { s.observe(ctx, "delete_many", start, err) }(time.Now())

	keys = dedupe(keys)
	if len(keys) == 0 {
		return 0, apperror.NewValidation("ids must be a non-empty array")
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.cfg.Hooks.BeforeDeleteMany(ctx, keys); err != nil {
			return hookError(err)
		}
		if err := s.cascade.Run(ctx, s.cfg.Cascades, keys); err != nil {
			return err
		}

		affected, err = s.repo.Delete(ctx, s.cfg, keys)
		if err != nil {
			return fmt.Errorf("delete %s: %w", s.cfg.Name, err)
		}
		if affected == 0 {
			return apperror.NewNotFound(s.cfg.DisplayName(), keys)
		}
		return s.audit(ctx, keys, ActionDelete, nil, nil)
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// GetOne returns one row or NotFound. Hooks never run on reads.
func (s *Service) GetOne(ctx context.Context, key any) (rec Record, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_one", start, err) }(time.Now())

	if s.cfg.Queries.GetOne != nil {
		rec, err = s.cfg.Queries.GetOne(ctx, key)
	} else {
		rec, err = s.repo.FindOne(ctx, s.cfg, key)
	}
	if err != nil {
		return nil, s.normalizeReadErr(err, key)
	}
	if rec == nil {
		return nil, apperror.NewNotFound(s.cfg.DisplayName(), key)
	}
	return rec, nil
}

// GetList returns one page of rows.
func (s *Service) GetList(ctx context.Context, req ListRequest) (res *ListResult, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_list", start, err) }(time.Now())

	var (
		rows  []Record
		total int64
	)
	if s.cfg.Queries.GetList != nil {
		rows, total, err = s.cfg.Queries.GetList(ctx, req)
	} else {
		rows, total, err = s.repo.FindList(ctx, s.cfg, req)
	}
	if err != nil {
		return nil, s.normalizeReadErr(err, nil)
	}
	return newListResult(rows, total, req.Pagination), nil
}

func (s *Service) checkRequired(data Record) error {
	for _, f := range s.cfg.RequiredFields {
		if !data.Has(f) {
			return apperror.NewRequiredField(f)
		}
	}
	return nil
}

// checkUnique issues one existence query per unique field present in data.
// On update the row being updated is excluded.
func (s *Service) checkUnique(ctx context.Context, data Record, self any) error {
	for _, f := range s.cfg.UniqueFields {
		if !data.Has(f) {
			continue
		}
		var exclude map[string]any
		if self != nil {
			exclude = map[string]any{s.cfg.PrimaryKey: self}
		}
		exists, err := s.repo.Exists(ctx, s.cfg.Table, map[string]any{f: data[f]}, exclude)
		if err != nil {
			return fmt.Errorf("check unique %s.%s: %w", s.cfg.Table, f, err)
		}
		if exists {
			return apperror.NewValidation(fmt.Sprintf("%s with this %s already exists", s.cfg.DisplayName(), f)).
				WithDetail("field", f)
		}
	}
	return nil
}

// runAfter executes a post hook inside a savepoint. Failures are logged only.
func (s *Service) runAfter(ctx context.Context, stage string, key any, fn func(ctx context.Context) error) {
	if err := s.txm.RunInSavepoint(ctx, fn); err != nil {
		logger.Warn(ctx, "post hook failed",
			"entity", s.cfg.Name,
			"stage", stage,
			"key", key,
			"error", err,
		)
	}
}

func (s *Service) snapshot(ctx context.Context, key any) (Record, error) {
	if s.auditor == nil {
		return nil, nil
	}
	rec, err := s.repo.FindOne(ctx, s.cfg, key)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.cfg.Name, err)
	}
	return rec, nil
}

func (s *Service) audit(ctx context.Context, key any, action string, before, after Record) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Record(ctx, AuditEntry{
		Entity: s.cfg.Name,
		Key:    key,
		Action: action,
		Before: before,
		After:  after,
	})
	if err != nil {
		return fmt.Errorf("audit %s %s: %w", action, s.cfg.Name, err)
	}
	return nil
}

func (s *Service) normalizeReadErr(err error, key any) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.cfg.DisplayName(), key)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewPersistence(err).WithDetail("entity", s.cfg.Name)
}

func dedupe(keys []any) []any {
	seen := make(map[any]bool, len(keys))
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		if k == nil || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
