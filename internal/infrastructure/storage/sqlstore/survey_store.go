package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"pomegranate/internal/domain/crud"
	"pomegranate/internal/domain/survey"
)

var _ survey.Repository = (*SurveyStore)(nil)

const responsesTable = "survey_responses"

var responsesConfig = &crud.EntityConfig{Table: responsesTable, PrimaryKey: "id"}

// SurveyStore persists questionnaire responses and the users.is_verified flag.
type SurveyStore struct {
	*EntityRepo
	now func() time.Time
}

// NewSurveyStore creates a SurveyStore.
func NewSurveyStore(txm *TxManager) *SurveyStore {
	return &SurveyStore{
		EntityRepo: NewEntityRepo(txm),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OpenDraft returns the newest incomplete response of the user, or nil.
func (s *SurveyStore) OpenDraft(ctx context.Context, userID int64) (*survey.Draft, error) {
	b := s.Builder().Select("id", "answers").From(responsesTable).
		Where(sq.Eq{"user_id": userID, "is_complete": 0}).
		OrderBy("id DESC").
		Limit(1)
	rec, err := queryRecord(ctx, s.txm.GetQuerier(ctx), b)
	if err != nil {
		return nil, wrapErr(err, responsesTable)
	}
	if rec == nil {
		return nil, nil
	}

	id, _ := rec.Int("id")
	d := &survey.Draft{ID: id, Answers: []any{}}
	if raw := rec.String("answers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of response %d: %w", id, err)
		}
	}
	return d, nil
}

// CreateResponse inserts r and returns its id.
func (s *SurveyStore) CreateResponse(ctx context.Context, r survey.Response) (int64, error) {
	row, err := responseRow(r)
	if err != nil {
		return 0, err
	}
	now := s.now()
	row["user_id"] = r.UserID
	row["created_at"] = now
	row["updated_at"] = now

	key, err := s.Insert(ctx, responsesConfig, row)
	if err != nil {
		return 0, err
	}
	return key.(int64), nil
}

// UpdateResponse overwrites the answers and outcome of response id.
func (s *SurveyStore) UpdateResponse(ctx context.Context, id int64, r survey.Response) error {
	row, err := responseRow(r)
	if err != nil {
		return err
	}
	row["updated_at"] = s.now()
	_, err = s.Update(ctx, responsesConfig, id, row)
	return err
}

// IsVerified reports users.is_verified; unknown users are unverified.
func (s *SurveyStore) IsVerified(ctx context.Context, userID int64) (bool, error) {
	b := s.Builder().Select("is_verified").From("users").Where(sq.Eq{"id": userID})
	n, err := scanInt64(ctx, s.txm.GetQuerier(ctx), b)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err, "users")
	}
	return n == 1, nil
}

// MarkVerified sets users.is_verified for the user.
func (s *SurveyStore) MarkVerified(ctx context.Context, userID int64) error {
	query, args, err := s.Builder().Update("users").
		Set("is_verified", 1).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	_, err = s.exec(ctx, "users", query, args)
	return err
}

func responseRow(r survey.Response) (crud.Record, error) {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return crud.Record{
		"answers":     string(answers),
		"score":       int64(r.Score),
		"is_complete": boolFlag(r.Complete),
		"is_passed":   boolFlag(r.Passed),
	}, nil
}

func boolFlag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
