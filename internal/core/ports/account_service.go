package ports

import (
	"context"

	"github.com/medstargenx/accounts/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to Register.
type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Kind           domain.Kind
	Specialization string
	LicenseNumber  string
}

// TokenPair is the result of a successful authentication.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterResult is returned by Register. Tokens is nil while the account
// waits for approval.
type RegisterResult struct {
	Account *domain.Account
	Tokens  *TokenPair
	Pending bool
}

// LoginResult is returned by Login.
type LoginResult struct {
	Account *domain.Account
	Tokens  TokenPair
}

// AccountService covers the self-service side of the account lifecycle.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, accountID string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, accountID, name, email string) (*domain.Account, error)
}

// ApprovalService covers the administrator side of the account lifecycle.
type ApprovalService interface {
	ListPending(ctx context.Context) ([]*domain.Account, error)
	ListAll(ctx context.Context, filter ListAccountsFilter) ([]*domain.Account, error)
	Stats(ctx context.Context) (*domain.AccountStats, error)
	Activity(ctx context.Context, accountID string) ([]domain.ActivityRecord, error)

	Approve(ctx context.Context, accountID, actorID string) (*domain.Account, error)
	Reject(ctx context.Context, accountID, actorID string) error
	Deactivate(ctx context.Context, accountID, actorID string) (*domain.Account, error)
	AdminDelete(ctx context.Context, accountID, actorID string) error
}

// TokenService issues and verifies signed tokens.
type TokenService interface {
	IssuePair(acc *domain.Account) (TokenPair, error)
	IssueAccess(acc *domain.Account) (string, error)
	// ParseAccess verifies an access token and returns the account id it names.
	ParseAccess(raw string) (string, error)
	// ParseRefresh verifies a refresh token and returns the account id it names.
	ParseRefresh(raw string) (string, error)
}

// LoginThrottle counts failed logins per e-mail.
type LoginThrottle interface {
	Locked(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// ActivityRecorder accepts audit records for asynchronous persistence.
type ActivityRecorder interface {
	Record(rec domain.ActivityRecord)
}

// ActivityProcessor persists a single audit record. The activity dispatcher
// workers call it.
type ActivityProcessor interface {
	Process(ctx context.Context, rec domain.ActivityRecord) error
}
