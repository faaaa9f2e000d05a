package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		params     NewAccountParams
		wantErr    bool
		wantFields []string
		wantState  AccountState
		wantRole   Role
	}{
		{
			name:      "administrator starts approved",
			params:    NewAccountParams{Name: "Root", Email: " Root@X.com ", Kind: KindAdministrator},
			wantState: StateActive,
			wantRole:  RoleAdministrator,
		},
		{
			name: "clinician starts pending",
			params: NewAccountParams{
				Name: "Dr. A", Email: "a@x.com", Kind: KindClinician,
				Specialization: "Cardiology", LicenseNumber: "L-1",
			},
			wantState: StatePendingApproval,
			wantRole:  RoleStandard,
		},
		{
			name:       "clinician without license",
			params:     NewAccountParams{Name: "Dr. A", Email: "a@x.com", Kind: KindClinician, Specialization: "Cardiology"},
			wantErr:    true,
			wantFields: []string{"licenseNumber"},
		},
		{
			name:       "clinician with blank fields",
			params:     NewAccountParams{Name: "Dr. A", Email: "a@x.com", Kind: KindClinician, Specialization: "  ", LicenseNumber: ""},
			wantErr:    true,
			wantFields: []string{"specialization", "licenseNumber"},
		},
		{
			name:       "unknown kind",
			params:     NewAccountParams{Name: "X", Email: "x@x.com", Kind: "nurse"},
			wantErr:    true,
			wantFields: []string{"accountKind"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := NewAccount(tt.params, now)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				got := make([]string, 0, len(verr.Fields))
				for _, f := range verr.Fields {
					got = append(got, f.Field)
				}
				require.Equal(t, tt.wantFields, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantState, acc.State())
			require.Equal(t, tt.wantRole, acc.Role)
			require.True(t, acc.IsActive)
			require.Equal(t, now, acc.CreatedAt)
			if acc.IsApproved {
				require.NotNil(t, acc.ApprovedAt)
			} else {
				require.Nil(t, acc.ApprovedAt)
			}
		})
	}
}

func TestNewAccount_NormalizesEmail(t *testing.T) {
	acc, err := NewAccount(NewAccountParams{Name: " Root ", Email: "  Root@Example.COM ", Kind: KindAdministrator}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "root@example.com", acc.Email)
	require.Equal(t, "Root", acc.Name)
}

func TestErrorKinds(t *testing.T) {
	require.ErrorIs(t, ErrAccountPending, ErrForbidden)
	require.ErrorIs(t, ErrAlreadyApproved, ErrConflict)
	require.ErrorIs(t, ErrSelfDelete, ErrInvalidOperation)
	require.ErrorIs(t, &DuplicateKeyError{Field: "email"}, ErrConflict)
	require.Equal(t, "email already exists", (&DuplicateKeyError{Field: "email"}).Error())
	require.Equal(t, "a; b", NewValidationError(FieldError{Message: "a"}, FieldError{Message: "b"}).Error())
}
