package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory account repository. Every method holds the lock for its whole
// body, mirroring the single-document atomicity of the real store.
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*domain.Account
	findErr  error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (r *stubAccountRepo) Create(_ context.Context, acc *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == acc.Email {
			return nil, &domain.DuplicateKeyError{Field: "email"}
		}
	}
	r.seq++
	c := cloneAccount(acc)
	c.ID = fmt.Sprintf("acc-%d", r.seq)
	r.accounts[c.ID] = c
	return cloneAccount(c), nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) matches(a *domain.Account, f ports.ListAccountsFilter) bool {
	switch f.Status {
	case ports.StatusFilterApproved:
		if !a.IsApproved {
			return false
		}
	case ports.StatusFilterPending:
		if a.IsApproved {
			return false
		}
	}
	if f.Kind != "" && a.Kind != f.Kind {
		return false
	}
	if f.Active != nil && a.IsActive != *f.Active {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.Name), q) && !strings.Contains(a.Email, q) {
			return false
		}
	}
	return true
}

func (r *stubAccountRepo) List(_ context.Context, f ports.ListAccountsFilter) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Account, 0)
	for _, a := range r.accounts {
		if r.matches(a, f) {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubAccountRepo) Count(ctx context.Context, f ports.ListAccountsFilter) (int64, error) {
	list, err := r.List(ctx, f)
	return int64(len(list)), err
}

func (r *stubAccountRepo) UpdateProfile(_ context.Context, id, name, email string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.Name, a.Email, a.UpdatedAt = name, email, now
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.LastLoginAt = &at
	return nil
}

func (r *stubAccountRepo) Approve(_ context.Context, id, actorID string, at time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.IsApproved {
		return nil, domain.ErrAccountNotFound
	}
	a.IsApproved, a.ApprovedBy, a.ApprovedAt, a.UpdatedAt = true, actorID, &at, at
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) Deactivate(_ context.Context, id string, at time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || !a.IsActive || !a.IsApproved {
		return nil, domain.ErrAccountNotFound
	}
	a.IsActive, a.UpdatedAt = false, at
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) DeletePending(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.IsApproved {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *stubAccountRepo) DeleteNonAdmin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Role == domain.RoleAdministrator {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

// seed stores an account directly, bypassing registration.
func (r *stubAccountRepo) seed(acc domain.Account) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acc.ID == "" {
		r.seq++
		acc.ID = fmt.Sprintf("acc-%d", r.seq)
	}
	r.accounts[acc.ID] = cloneAccount(&acc)
	return cloneAccount(&acc)
}

// ---------------------------------------------------------------------------
// Throttle, recorder and activity repository stubs.
// ---------------------------------------------------------------------------

type stubThrottle struct {
	locked   bool
	lockErr  error
	failures map[string]int
	resets   int
}

func (t *stubThrottle) Locked(_ context.Context, _ string) (bool, error) {
	return t.locked, t.lockErr
}

func (t *stubThrottle) Fail(_ context.Context, email string) error {
	if t.failures == nil {
		t.failures = make(map[string]int)
	}
	t.failures[email]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, _ string) error {
	t.resets++
	return nil
}

type stubRecorder struct {
	mu      sync.Mutex
	records []domain.ActivityRecord
}

func (r *stubRecorder) Record(rec domain.ActivityRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *stubRecorder) events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Event
	}
	return out
}

type stubActivityRepo struct {
	insertErr error
	inserted  []domain.ActivityRecord
}

func (r *stubActivityRepo) Insert(_ context.Context, rec *domain.ActivityRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, *rec)
	return nil
}

func (r *stubActivityRepo) ListByAccount(_ context.Context, accountID string, limit int) ([]domain.ActivityRecord, error) {
	out := make([]domain.ActivityRecord, 0)
	for _, rec := range r.inserted {
		if rec.AccountID == accountID && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}
