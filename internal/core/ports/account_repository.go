package ports

import (
	"context"
	"time"

	"github.com/medstargenx/accounts/internal/core/domain"
)

// Status filter values for ListAccountsFilter.
const (
	StatusFilterAll      = "all"
	StatusFilterApproved = "approved"
	StatusFilterPending  = "pending"
)

// ListAccountsFilter carries the admin listing query.
type ListAccountsFilter struct {
	Status string      // "", all, approved, pending
	Kind   domain.Kind // empty = any kind
	Search string      // case-insensitive partial match on name or email
	Active *bool       // nil = any
}

// AccountRepository is the credential store.
//
// The conditional mutators apply their guard and the write in a single store
// operation and return domain.ErrAccountNotFound when nothing matched; callers
// re-read the record to tell a missing account from a failed guard.
type AccountRepository interface {
	Create(ctx context.Context, acc *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context, filter ListAccountsFilter) ([]*domain.Account, error)
	Count(ctx context.Context, filter ListAccountsFilter) (int64, error)

	UpdateProfile(ctx context.Context, id, name, email string, now time.Time) (*domain.Account, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// Approve sets the approval fields only while is_approved is false.
	Approve(ctx context.Context, id, actorID string, at time.Time) (*domain.Account, error)
	// Deactivate clears is_active only while the account is active and approved.
	Deactivate(ctx context.Context, id string, at time.Time) (*domain.Account, error)
	// DeletePending removes the account only while is_approved is false.
	DeletePending(ctx context.Context, id string) error
	// DeleteNonAdmin removes the account only when its role is not administrator.
	DeleteNonAdmin(ctx context.Context, id string) error
}

// ActivityRepository persists the account audit trail.
type ActivityRepository interface {
	Insert(ctx context.Context, rec *domain.ActivityRecord) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.ActivityRecord, error)
}
