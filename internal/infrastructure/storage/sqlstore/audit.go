package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/klauspost/compress/zstd"

	appctx "pomegranate/internal/core/context"
	"pomegranate/internal/domain/crud"
)

// CompressionAlgo specifies how an audit payload is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 10 * 1024

var _ crud.Auditor = (*AuditLog)(nil)

// AuditRecord is one stored audit_log row with its payload decompressed.
type AuditRecord struct {
	ID         int64           `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityKey  string          `json:"entity_key"`
	Action     string          `json:"action"`
	Principal  string          `json:"principal"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type auditRow struct {
	ID                int64          `db:"id"`
	EntityType        string         `db:"entity_type"`
	EntityKey         string         `db:"entity_key"`
	Action            string         `db:"action"`
	Principal         string         `db:"principal"`
	Changes           sql.NullString `db:"changes"`
	ChangesCompressed []byte         `db:"changes_compressed"`
	CompressionAlgo   string         `db:"compression_algo"`
	CreatedAt         time.Time      `db:"created_at"`
}

// AuditLog writes entity changes to audit_log inside the caller's transaction.
type AuditLog struct {
	txm               *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditLog creates an AuditLog. Payloads above 10KB are zstd-compressed.
func NewAuditLog(txm *TxManager) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditLog{
		txm:               txm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Record stores one entry. The acting principal is taken from ctx.
func (a *AuditLog) Record(ctx context.Context, e crud.AuditEntry) error {
	changes, err := json.Marshal(auditChanges(e))
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	var (
		plain      any = string(changes)
		compressed []byte
		algo           = CompressionNone
	)
	if len(changes) > a.compressThreshold {
		compressed = a.encoder.EncodeAll(changes, nil)
		plain = nil
		algo = CompressionZstd
	}

	query, args, err := a.txm.db.Dialect.Builder().
		Insert("audit_log").
		Columns("entity_type", "entity_key", "action", "principal",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(e.Entity, formatKey(e.Key), e.Action, principalOf(ctx),
			plain, compressed, string(algo), time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := a.txm.GetQuerier(ctx).ExecContext(ctx, query, args...); err != nil {
		return wrapErr(err, "audit_log")
	}
	return nil
}

// History returns the newest entries for one entity row.
func (a *AuditLog) History(ctx context.Context, entity string, key any, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := a.txm.db.Dialect.Builder().
		Select("id", "entity_type", "entity_key", "action", "principal",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From("audit_log").
		Where(sq.Eq{"entity_type": entity, "entity_key": formatKey(key)}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var rows []auditRow
	if err := sqlscan.Select(ctx, a.txm.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	out := make([]AuditRecord, 0, len(rows))
	for _, r := range rows {
		rec := AuditRecord{
			ID:         r.ID,
			EntityType: r.EntityType,
			EntityKey:  r.EntityKey,
			Action:     r.Action,
			Principal:  r.Principal,
			CreatedAt:  r.CreatedAt,
		}
		switch {
		case CompressionAlgo(r.CompressionAlgo) == CompressionZstd && len(r.ChangesCompressed) > 0:
			raw, err := a.decoder.DecodeAll(r.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			rec.Changes = raw
		case r.Changes.Valid:
			rec.Changes = json.RawMessage(r.Changes.String)
		}
		out = append(out, rec)
	}
	return out, nil
}

func auditChanges(e crud.AuditEntry) map[string]any {
	switch {
	case e.Before != nil && e.After != nil:
		return Diff(e.Before, e.After)
	case e.After != nil:
		return map[string]any{"new": e.After}
	case e.Before != nil:
		return map[string]any{"old": e.Before}
	}
	return map[string]any{}
}

// Diff returns old/new pairs for every field that differs between states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for k, newVal := range newState {
		oldVal, ok := oldState[k]
		if !ok || fmt.Sprint(oldVal) != fmt.Sprint(newVal) {
			changes[k] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for k, oldVal := range oldState {
		if _, ok := newState[k]; !ok {
			changes[k] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}

func formatKey(key any) string {
	if keys, ok := key.([]any); ok {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprint(k)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(key)
}

func principalOf(ctx context.Context) string {
	p := appctx.GetPrincipal(ctx)
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", p.Kind, p.ID)
}
