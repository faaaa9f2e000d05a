package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccount_State(t *testing.T) {
	require.Equal(t, StatePendingApproval, (&Account{IsActive: true}).State())
	require.Equal(t, StateActive, (&Account{IsActive: true, IsApproved: true}).State())
	require.Equal(t, StateDeactivated, (&Account{IsApproved: true}).State())
	require.Equal(t, StateDeactivated, (&Account{}).State())
}

func TestAccountState_Transitions(t *testing.T) {
	tests := []struct {
		from AccountState
		ev   Event
		to   AccountState
		ok   bool
	}{
		{StatePendingApproval, EventApprove, StateActive, true},
		{StatePendingApproval, EventReject, StateDeleted, true},
		{StatePendingApproval, EventDelete, StateDeleted, true},
		{StatePendingApproval, EventDeactivate, "", false},
		{StateActive, EventDeactivate, StateDeactivated, true},
		{StateActive, EventDelete, StateDeleted, true},
		{StateActive, EventApprove, "", false},
		{StateActive, EventReject, "", false},
		{StateDeactivated, EventDelete, StateDeleted, true},
		{StateDeactivated, EventApprove, "", false},
		{StateDeactivated, EventDeactivate, "", false},
		{StateDeleted, EventDelete, "", false},
		{StateDeleted, EventApprove, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			to, ok := tt.from.Next(tt.ev)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.to, to)
			require.Equal(t, tt.ok, tt.from.CanApply(tt.ev))
		})
	}
}
