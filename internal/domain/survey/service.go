package survey

import (
	"context"
	"fmt"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/core/tx"
	"pomegranate/pkg/logger"
)

// Service records questionnaire answers for the calling user.
type Service struct {
	txm  tx.Manager
	repo Repository
}

// NewService creates a survey service.
func NewService(txm tx.Manager, repo Repository) *Service {
	return &Service{txm: txm, repo: repo}
}

// Save stores answers as the user's draft, reusing an open draft if one exists.
func (s *Service) Save(ctx context.Context, userID int64, answers []any) (*SaveResult, error) {
	if answers == nil {
		return nil, errAnswers()
	}

	var id int64
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		draft, err := s.repo.OpenDraft(ctx, userID)
		if err != nil {
			return fmt.Errorf("load draft: %w", err)
		}
		r := Response{UserID: userID, Answers: answers}
		if draft != nil {
			id = draft.ID
			return s.repo.UpdateResponse(ctx, id, r)
		}
		id, err = s.repo.CreateResponse(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SaveResult{ResponseID: id}, nil
}

// Submit scores answers, completes the user's response and verifies the
// user when the score reaches PassScore.
func (s *Service) Submit(ctx context.Context, userID int64, answers []any) (*SubmitResult, error) {
	if answers == nil {
		return nil, errAnswers()
	}

	res := &SubmitResult{Score: len(answers)}
	res.IsPassed = res.Score >= PassScore

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		draft, err := s.repo.OpenDraft(ctx, userID)
		if err != nil {
			return fmt.Errorf("load draft: %w", err)
		}
		r := Response{
			UserID:   userID,
			Answers:  answers,
			Score:    res.Score,
			Complete: true,
			Passed:   res.IsPassed,
		}
		if draft != nil {
			err = s.repo.UpdateResponse(ctx, draft.ID, r)
		} else {
			_, err = s.repo.CreateResponse(ctx, r)
		}
		if err != nil {
			return err
		}
		if res.IsPassed {
			return s.repo.MarkVerified(ctx, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "survey submitted", "user_id", userID, "score", res.Score, "passed", res.IsPassed)
	return res, nil
}

// Status reports whether the user has passed, has a draft, or has not started.
func (s *Service) Status(ctx context.Context, userID int64) (*Progress, error) {
	verified, err := s.repo.IsVerified(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load verification: %w", err)
	}
	if verified {
		return &Progress{IsVerified: true, Status: StatusPassed}, nil
	}

	draft, err := s.repo.OpenDraft(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft != nil {
		return &Progress{Status: StatusInProgress, LastAnswers: draft.Answers}, nil
	}
	return &Progress{Status: StatusNotStarted}, nil
}

func errAnswers() error {
	return apperror.NewValidation("answers must be an array").WithDetail("field", "answers")
}
