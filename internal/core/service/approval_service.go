package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

const activityHistoryLimit = 100

var errAdminRequired = &domain.KindError{Kind: domain.ErrForbidden, Msg: "access denied: requires role administrator"}

// ApprovalService drives the administrator transitions of the account state
// machine. Each transition is a single conditional write in the store; when it
// matches nothing the record is re-read to report why.
type ApprovalService struct {
	repo     ports.AccountRepository
	activity ports.ActivityRepository
	recorder ports.ActivityRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewApprovalService(
	repo ports.AccountRepository,
	activity ports.ActivityRepository,
	recorder ports.ActivityRecorder,
	logger zerolog.Logger,
) *ApprovalService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &ApprovalService{
		repo:     repo,
		activity: activity,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListPending returns active accounts still waiting for approval, newest first.
func (s *ApprovalService) ListPending(ctx context.Context) ([]*domain.Account, error) {
	active := true
	return s.repo.List(ctx, ports.ListAccountsFilter{Status: ports.StatusFilterPending, Active: &active})
}

func (s *ApprovalService) ListAll(ctx context.Context, filter ports.ListAccountsFilter) ([]*domain.Account, error) {
	switch filter.Status {
	case "", ports.StatusFilterAll, ports.StatusFilterApproved, ports.StatusFilterPending:
	default:
		return nil, domain.NewValidationError(domain.FieldError{Field: "status", Message: "status must be one of: all approved pending"})
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.NewValidationError(domain.FieldError{Field: "accountKind", Message: "accountKind must be one of: all clinician administrator"})
	}
	return s.repo.List(ctx, filter)
}

func (s *ApprovalService) Stats(ctx context.Context) (*domain.AccountStats, error) {
	active, inactive := true, false
	stats := &domain.AccountStats{}
	counts := []struct {
		dst    *int64
		filter ports.ListAccountsFilter
	}{
		{&stats.Total, ports.ListAccountsFilter{}},
		{&stats.Pending, ports.ListAccountsFilter{Status: ports.StatusFilterPending, Active: &active}},
		{&stats.Approved, ports.ListAccountsFilter{Status: ports.StatusFilterApproved}},
		{&stats.Clinicians, ports.ListAccountsFilter{Kind: domain.KindClinician}},
		{&stats.Administrators, ports.ListAccountsFilter{Kind: domain.KindAdministrator}},
		{&stats.Inactive, ports.ListAccountsFilter{Active: &inactive}},
	}
	for _, c := range counts {
		n, err := s.repo.Count(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		*c.dst = n
	}
	return stats, nil
}

// Activity returns the audit trail of an account. History outlives the
// account, so a deleted account still has its records listed.
func (s *ApprovalService) Activity(ctx context.Context, accountID string) ([]domain.ActivityRecord, error) {
	return s.activity.ListByAccount(ctx, accountID, activityHistoryLimit)
}

// Approve moves a pending account to active.
func (s *ApprovalService) Approve(ctx context.Context, accountID, actorID string) (*domain.Account, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	acc, err := s.repo.Approve(ctx, accountID, actorID, s.now())
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("approve: %w", err)
		}
		current, ferr := s.repo.FindByID(ctx, accountID)
		if ferr != nil {
			return nil, ferr
		}
		if current.IsApproved {
			return nil, domain.ErrAlreadyApproved
		}
		return nil, domain.ErrAccountNotFound
	}

	s.transitioned(acc.ID, actorID, domain.EventApprove, domain.StatePendingApproval, domain.StateActive)
	return acc, nil
}

// Reject permanently removes a pending account.
func (s *ApprovalService) Reject(ctx context.Context, accountID, actorID string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	if err := s.repo.DeletePending(ctx, accountID); err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("reject: %w", err)
		}
		current, ferr := s.repo.FindByID(ctx, accountID)
		if ferr != nil {
			return ferr
		}
		if current.IsApproved {
			return domain.ErrRejectApproved
		}
		return domain.ErrAccountNotFound
	}

	s.transitioned(accountID, actorID, domain.EventReject, domain.StatePendingApproval, domain.StateDeleted)
	return nil
}

// Deactivate moves an active account to deactivated.
func (s *ApprovalService) Deactivate(ctx context.Context, accountID, actorID string) (*domain.Account, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	acc, err := s.repo.Deactivate(ctx, accountID, s.now())
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("deactivate: %w", err)
		}
		if _, ferr := s.repo.FindByID(ctx, accountID); ferr != nil {
			return nil, ferr
		}
		return nil, domain.ErrNotActive
	}

	s.transitioned(acc.ID, actorID, domain.EventDeactivate, domain.StateActive, domain.StateDeactivated)
	return acc, nil
}

// AdminDelete removes a non-administrator account. An administrator can
// neither delete themself nor another administrator.
func (s *ApprovalService) AdminDelete(ctx context.Context, accountID, actorID string) error {
	if accountID == actorID {
		return domain.ErrSelfDelete
	}
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	target, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if target.IsAdministrator() {
		return domain.ErrDeleteAdmin
	}
	from := target.State()
	if !from.CanApply(domain.EventDelete) {
		return &domain.KindError{Kind: domain.ErrInvalidOperation, Msg: fmt.Sprintf("cannot delete account in state %s", from)}
	}

	if err := s.repo.DeleteNonAdmin(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("delete: %w", err)
	}

	s.transitioned(accountID, actorID, domain.EventDelete, from, domain.StateDeleted)
	return nil
}

// requireAdmin re-checks the actor's role against the store; the gateway has
// already done so for HTTP callers.
func (s *ApprovalService) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return errAdminRequired
		}
		return fmt.Errorf("resolve actor: %w", err)
	}
	if !actor.IsAdministrator() || !actor.IsActive {
		return errAdminRequired
	}
	return nil
}

func (s *ApprovalService) transitioned(accountID, actorID string, ev domain.Event, from, to domain.AccountState) {
	s.recorder.Record(domain.ActivityRecord{
		AccountID: accountID,
		Event:     ev,
		ActorID:   actorID,
		From:      string(from),
		To:        string(to),
		At:        s.now(),
	})
	s.logger.Info().
		Str("account_id", accountID).
		Str("actor_id", actorID).
		Str("event", string(ev)).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("account transition")
}
