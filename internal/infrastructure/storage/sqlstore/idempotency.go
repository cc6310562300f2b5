package sqlstore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"pomegranate/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// staleAfter is how long a pending key may sit before another request reclaims it.
const staleAfter = time.Minute

// IdempotencyRecord stores the result of an idempotent operation.
type IdempotencyRecord struct {
	Key         string            `db:"idempotency_key"`
	Principal   string            `db:"principal"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore manages idempotency keys. It must be used outside of a
// request transaction: a failed insert would abort a PostgreSQL transaction.
type IdempotencyStore struct {
	txm *TxManager
	ttl time.Duration
	now func() time.Time
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txm *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txm: txm,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) builder() sq.StatementBuilderType {
	return s.txm.db.Dialect.Builder()
}

// AcquireKey attempts to acquire an idempotency key.
// Returns:
//   - (nil, nil) if the key was acquired
//   - (replay, nil) if the operation already completed
//   - (nil, error) if the key is in flight or was used for another request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, principal, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now()

	query, args, err := s.builder().
		Insert("sys_idempotency").
		Columns("idempotency_key", "principal", "operation", "status", "request_hash",
			"created_at", "updated_at", "expires_at").
		Values(key, principal, operation, string(IdempotencyStatusPending), requestHash,
			now, now, now.Add(s.ttl)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency insert: %w", err)
	}

	_, err = s.txm.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err == nil {
		return nil, nil
	}
	if classify(err) != uniqueViolation {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	record, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// Deleted between insert and select by cleanup; let the caller retry.
		return nil, apperror.NewIdempotencyConflict(key)
	}

	if record.ExpiresAt.Before(now) {
		return nil, s.reset(ctx, key, principal, operation, requestHash, now, record.Status)
	}

	if record.Principal != principal || record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	switch record.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return &IdempotencyReplay{
			StatusCode:  normalizeReplayStatus(record.StatusCode),
			ContentType: normalizeReplayContentType(record.ContentType),
			Body:        record.Response,
		}, nil
	case IdempotencyStatusPending:
		if now.Sub(record.UpdatedAt) > staleAfter {
			return nil, s.reset(ctx, key, principal, operation, requestHash, now, IdempotencyStatusPending)
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

func (s *IdempotencyStore) get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	query, args, err := s.builder().
		Select("idempotency_key", "principal", "operation", "status", "request_hash", "response",
			"response_status", "response_content_type", "created_at", "updated_at", "expires_at").
		From("sys_idempotency").
		Where(sq.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency select: %w", err)
	}

	var records []IdempotencyRecord
	if err := sqlscan.Select(ctx, s.txm.GetQuerier(ctx), &records, query, args...); err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// reset takes over a stale or expired key. The status guard makes concurrent
// reclaims race safely: only one update matches.
func (s *IdempotencyStore) reset(ctx context.Context, key, principal, operation, requestHash string, now time.Time, from IdempotencyStatus) error {
	query, args, err := s.builder().
		Update("sys_idempotency").
		SetMap(map[string]any{
			"principal":             principal,
			"operation":             operation,
			"status":                string(IdempotencyStatusPending),
			"request_hash":          requestHash,
			"response":              nil,
			"response_status":       0,
			"response_content_type": "",
			"updated_at":            now,
			"expires_at":            now.Add(s.ttl),
		}).
		Where(sq.Eq{"idempotency_key": key, "status": string(from)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency reset: %w", err)
	}
	res, err := s.txm.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewIdempotencyConflict(key)
	}
	return nil
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, body)
}

// FailKey stores a failed response for replay.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, IdempotencyStatusFailed, statusCode, contentType, body)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, body []byte) error {
	query, args, err := s.builder().
		Update("sys_idempotency").
		SetMap(map[string]any{
			"status":                string(status),
			"response":              body,
			"response_status":       statusCode,
			"response_content_type": contentType,
			"updated_at":            s.now(),
		}).
		Where(sq.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency update: %w", err)
	}
	if _, err := s.txm.GetQuerier(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store idempotency result: %w", err)
	}
	return nil
}

// Release drops a pending key so the request can be retried, used when the
// handler panicked or the response could not be captured.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	query, args, err := s.builder().
		Delete("sys_idempotency").
		Where(sq.Eq{"idempotency_key": key, "status": string(IdempotencyStatusPending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency release: %w", err)
	}
	_, err = s.txm.GetQuerier(ctx).ExecContext(ctx, query, args...)
	return err
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	query, args, err := s.builder().
		Delete("sys_idempotency").
		Where(sq.Lt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build idempotency cleanup: %w", err)
	}
	res, err := s.txm.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func normalizeReplayStatus(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

func normalizeReplayContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
