package domain

import (
	"errors"
	"strings"
)

// Error kinds. Every error returned by the service layer wraps one of these;
// the HTTP layer maps them to status codes.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrTooManyAttempts  = errors.New("too many attempts")
)

// KindError is a client-safe message tagged with an error kind.
type KindError struct {
	Kind error
	Msg  string
}

func (e *KindError) Error() string { return e.Msg }

func (e *KindError) Unwrap() error { return e.Kind }

func newKindError(kind error, msg string) *KindError {
	return &KindError{Kind: kind, Msg: msg}
}

var (
	ErrInvalidCredentials = newKindError(ErrUnauthenticated, "invalid email or password")
	ErrInvalidToken       = newKindError(ErrUnauthenticated, "invalid or expired token")
	ErrAccountDeactivated = newKindError(ErrForbidden, "account has been deactivated")
	ErrAccountPending     = newKindError(ErrForbidden, "account is pending admin approval")
	ErrAccountNotFound    = newKindError(ErrNotFound, "account not found")
	ErrAlreadyApproved    = newKindError(ErrConflict, "account is already approved")
	ErrRejectApproved     = newKindError(ErrConflict, "cannot reject an approved account")
	ErrNotActive          = newKindError(ErrConflict, "account is not active")
	ErrSelfDelete         = newKindError(ErrInvalidOperation, "you cannot delete your own account")
	ErrDeleteAdmin        = newKindError(ErrInvalidOperation, "cannot delete administrator accounts")
	ErrLoginLocked        = newKindError(ErrTooManyAttempts, "too many failed login attempts, try again later")
)

// RefusedLoginError reports a login refused because of the account state.
// It is unauthenticated to the caller while the state error it wraps stays
// reachable through errors.Is and errors.As.
type RefusedLoginError struct {
	Err error
}

func (e *RefusedLoginError) Error() string { return e.Err.Error() }

func (e *RefusedLoginError) Unwrap() []error { return []error{ErrUnauthenticated, e.Err} }

// FieldError is one entry of a field-level validation report.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports invalid input field by field.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from the given field errors.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// DuplicateKeyError is returned when a unique constraint rejects a write.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return "resource already exists"
	}
	return e.Field + " already exists"
}

func (e *DuplicateKeyError) Unwrap() error { return ErrConflict }
