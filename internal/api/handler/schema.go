package handler

import (
	"time"

	"github.com/medstargenx/accounts/internal/core/domain"
)

// Response is the envelope returned by every endpoint.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Count   *int                `json:"count,omitempty"`
}

// --- Request types ---

type registerRequest struct {
	Name           string `json:"name"           validate:"required,max=100"`
	Email          string `json:"email"          validate:"required,email"`
	Password       string `json:"password"       validate:"required,min=6,max=72"`
	AccountKind    string `json:"accountKind"    validate:"required,oneof=clinician administrator"`
	Specialization string `json:"specialization" validate:"required_if=AccountKind clinician,max=100"`
	LicenseNumber  string `json:"licenseNumber"  validate:"required_if=AccountKind clinician,max=50"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type updateProfileRequest struct {
	Name  string `json:"name"  validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// --- Response types ---

// accountResponse is the public view of an account. The password hash is
// never part of it.
type accountResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	AccountKind    string     `json:"accountKind"`
	IsActive       bool       `json:"isActive"`
	IsApproved     bool       `json:"isApproved"`
	Status         string     `json:"status"`
	Specialization string     `json:"specialization,omitempty"`
	LicenseNumber  string     `json:"licenseNumber,omitempty"`
	ApprovedBy     string     `json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type authData struct {
	User         accountResponse `json:"user"`
	AccessToken  string          `json:"accessToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
}

type userData struct {
	User accountResponse `json:"user"`
}

type refreshData struct {
	AccessToken string `json:"accessToken"`
}

type activityResponse struct {
	Event   string    `json:"event"`
	ActorID string    `json:"actorId,omitempty"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	At      time.Time `json:"at"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		Role:           string(a.Role),
		AccountKind:    string(a.Kind),
		IsActive:       a.IsActive,
		IsApproved:     a.IsApproved,
		Status:         string(a.State()),
		Specialization: a.Specialization,
		LicenseNumber:  a.LicenseNumber,
		ApprovedBy:     a.ApprovedBy,
		ApprovedAt:     a.ApprovedAt,
		LastLoginAt:    a.LastLoginAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toAccountList(accounts []*domain.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

func toActivityList(records []domain.ActivityRecord) []activityResponse {
	out := make([]activityResponse, 0, len(records))
	for _, r := range records {
		out = append(out, activityResponse{
			Event:   string(r.Event),
			ActorID: r.ActorID,
			From:    r.From,
			To:      r.To,
			At:      r.At,
		})
	}
	return out
}
