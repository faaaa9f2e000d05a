package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

type activityService struct {
	repo ports.ActivityRepository
	log  zerolog.Logger
}

// NewActivityService returns the ActivityProcessor used by the dispatcher
// workers to persist audit records.
func NewActivityService(repo ports.ActivityRepository, log zerolog.Logger) ports.ActivityProcessor {
	return &activityService{repo: repo, log: log}
}

func (s *activityService) Process(ctx context.Context, rec domain.ActivityRecord) error {
	if rec.AccountID == "" || rec.Event == "" {
		return fmt.Errorf("process activity: incomplete record %+v", rec)
	}
	if err := s.repo.Insert(ctx, &rec); err != nil {
		return fmt.Errorf("process activity: %w", err)
	}

	s.log.Debug().
		Str("account_id", rec.AccountID).
		Str("event", string(rec.Event)).
		Msg("activity recorded")
	return nil
}
