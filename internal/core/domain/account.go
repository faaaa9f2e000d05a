package domain

import (
	"strings"
	"time"
)

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleStandard      Role = "standard"
	RoleAdministrator Role = "administrator"
)

// Kind is the account kind chosen at registration. Role is derived from it.
type Kind string

const (
	KindClinician     Kind = "clinician"
	KindAdministrator Kind = "administrator"
)

// Valid reports whether k is a known account kind.
func (k Kind) Valid() bool {
	return k == KindClinician || k == KindAdministrator
}

// Role maps an account kind to its authorization role.
func (k Kind) Role() Role {
	if k == KindAdministrator {
		return RoleAdministrator
	}
	return RoleStandard
}

// Account models a credential holder.
type Account struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	Kind           Kind       `json:"accountKind"`
	IsActive       bool       `json:"isActive"`
	IsApproved     bool       `json:"isApproved"`
	Specialization string     `json:"specialization,omitempty"`
	LicenseNumber  string     `json:"licenseNumber,omitempty"`
	ApprovedBy     string     `json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewAccountParams carries the registration fields for NewAccount.
type NewAccountParams struct {
	Name           string
	Email          string
	PasswordHash   string
	Kind           Kind
	Specialization string
	LicenseNumber  string
}

// NewAccount builds an account in its initial state. Administrators start
// approved; clinicians start pending and must carry specialization and
// license number.
func NewAccount(p NewAccountParams, now time.Time) (*Account, error) {
	if !p.Kind.Valid() {
		return nil, NewValidationError(FieldError{Field: "accountKind", Message: "accountKind must be one of: clinician administrator"})
	}

	spec := strings.TrimSpace(p.Specialization)
	license := strings.TrimSpace(p.LicenseNumber)
	if p.Kind == KindClinician {
		var fields []FieldError
		if spec == "" {
			fields = append(fields, FieldError{Field: "specialization", Message: "specialization is required for clinicians"})
		}
		if license == "" {
			fields = append(fields, FieldError{Field: "licenseNumber", Message: "licenseNumber is required for clinicians"})
		}
		if len(fields) > 0 {
			return nil, NewValidationError(fields...)
		}
	}

	approved := p.Kind == KindAdministrator
	acc := &Account{
		Name:           strings.TrimSpace(p.Name),
		Email:          NormalizeEmail(p.Email),
		PasswordHash:   p.PasswordHash,
		Role:           p.Kind.Role(),
		Kind:           p.Kind,
		IsActive:       true,
		IsApproved:     approved,
		Specialization: spec,
		LicenseNumber:  license,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if approved {
		acc.ApprovedAt = &now
	}
	return acc, nil
}

// NormalizeEmail lower-cases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdministrator reports whether the account holds the administrator role.
func (a *Account) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}
