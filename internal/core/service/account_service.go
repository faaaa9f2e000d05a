package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer input.
	maxPasswordBytes = 72
)

// AccountService implements registration, login, token refresh and the
// self-service profile operations.
type AccountService struct {
	repo       ports.AccountRepository
	tokens     ports.TokenService
	throttle   ports.LoginThrottle
	activity   ports.ActivityRecorder
	bcryptCost int
	logger     zerolog.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAccountService(
	repo ports.AccountRepository,
	tokens ports.TokenService,
	throttle ports.LoginThrottle,
	activity ports.ActivityRecorder,
	bcryptCost int,
	logger zerolog.Logger,
) *AccountService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if throttle == nil {
		throttle = noopThrottle{}
	}
	if activity == nil {
		activity = noopRecorder{}
	}
	return &AccountService{
		repo:       repo,
		tokens:     tokens,
		throttle:   throttle,
		activity:   activity,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account in its initial state. Administrators get a
// token pair straight away; clinicians are left pending approval.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	if err := validateCredentials(in.Name, in.Email, in.Password); err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(in.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, &domain.DuplicateKeyError{Field: "email"}
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	acc, err := domain.NewAccount(domain.NewAccountParams{
		Name:           in.Name,
		Email:          email,
		Kind:           in.Kind,
		Specialization: in.Specialization,
		LicenseNumber:  in.LicenseNumber,
	}, s.now())
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	acc.PasswordHash = string(hash)

	created, err := s.repo.Create(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.activity.Record(domain.ActivityRecord{
		AccountID: created.ID,
		Event:     domain.ActivityRegistered,
		To:        string(created.State()),
		At:        created.CreatedAt,
	})
	s.logger.Info().
		Str("account_id", created.ID).
		Str("kind", string(created.Kind)).
		Bool("approved", created.IsApproved).
		Msg("account registered")

	result := &ports.RegisterResult{Account: created, Pending: !created.IsApproved}
	if created.IsApproved {
		pair, err := s.tokens.IssuePair(created)
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		result.Tokens = &pair
	}
	return result, nil
}

// Login verifies credentials and returns a fresh token pair. The password is
// checked before the account state so the state is only revealed to callers
// who know the password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	locked, err := s.throttle.Locked(ctx, email)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login throttle check failed, continuing")
	} else if locked {
		return nil, domain.ErrLoginLocked
	}

	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		// Same bcrypt work as a real mismatch.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.recordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		s.recordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	if !acc.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	if !acc.IsApproved {
		return nil, domain.ErrAccountPending
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reset login throttle")
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, acc.ID, now); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	acc.LastLoginAt = &now

	pair, err := s.tokens.IssuePair(acc)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.activity.Record(domain.ActivityRecord{AccountID: acc.ID, Event: domain.ActivityLogin, At: now})
	return &ports.LoginResult{Account: acc, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself is not rotated.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	id, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", domain.ErrInvalidToken
	}

	acc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.ErrInvalidToken
		}
		return "", fmt.Errorf("refresh: %w", err)
	}
	if !acc.IsActive {
		return "", domain.ErrInvalidToken
	}

	access, err := s.tokens.IssueAccess(acc)
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return access, nil
}

func (s *AccountService) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

// UpdateProfile changes the caller's own name and/or e-mail. Empty values
// leave the field untouched.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID, name, email string) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)
	if name == "" && email == "" {
		return nil, domain.NewValidationError(domain.FieldError{Field: "name", Message: "name or email must be provided"})
	}

	current, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = current.Name
	}
	if email == "" {
		email = current.Email
	}

	if email != current.Email {
		if other, err := s.repo.FindByEmail(ctx, email); err == nil && other.ID != current.ID {
			return nil, &domain.DuplicateKeyError{Field: "email"}
		} else if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("update profile: lookup email: %w", err)
		}
	}

	now := s.now()
	updated, err := s.repo.UpdateProfile(ctx, accountID, name, email, now)
	if err != nil {
		return nil, err
	}
	s.activity.Record(domain.ActivityRecord{AccountID: accountID, Event: domain.ActivityProfile, ActorID: accountID, At: now})
	return updated, nil
}

func (s *AccountService) recordFailure(ctx context.Context, email string) {
	if err := s.throttle.Fail(ctx, email); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record login failure")
	}
}

func (s *AccountService) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to build dummy hash")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func validateCredentials(name, email, password string) error {
	var fields []domain.FieldError
	if strings.TrimSpace(name) == "" {
		fields = append(fields, domain.FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(email) == "" {
		fields = append(fields, domain.FieldError{Field: "email", Message: "email is required"})
	}
	if len(password) < minPasswordLength {
		fields = append(fields, domain.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		})
	} else if len(password) > maxPasswordBytes {
		fields = append(fields, domain.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes),
		})
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

type noopThrottle struct{}

func (noopThrottle) Locked(context.Context, string) (bool, error) { return false, nil }
func (noopThrottle) Fail(context.Context, string) error           { return nil }
func (noopThrottle) Reset(context.Context, string) error          { return nil }

type noopRecorder struct{}

func (noopRecorder) Record(domain.ActivityRecord) {}
