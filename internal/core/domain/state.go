package domain

// AccountState is the lifecycle state of an account, derived from its flags.
type AccountState string

const (
	StatePendingApproval AccountState = "pending_approval"
	StateActive          AccountState = "active"
	StateDeactivated     AccountState = "deactivated"
	// StateDeleted is terminal; the record no longer exists.
	StateDeleted AccountState = "deleted"
)

// Event is an admin-driven lifecycle event.
type Event string

const (
	EventApprove    Event = "approve"
	EventReject     Event = "reject"
	EventDeactivate Event = "deactivate"
	EventDelete     Event = "delete"
)

// transitions maps state -> event -> next state.
var transitions = map[AccountState]map[Event]AccountState{
	StatePendingApproval: {
		EventApprove: StateActive,
		EventReject:  StateDeleted,
		EventDelete:  StateDeleted,
	},
	StateActive: {
		EventDeactivate: StateDeactivated,
		EventDelete:     StateDeleted,
	},
	StateDeactivated: {
		EventDelete: StateDeleted,
	},
}

// State derives the lifecycle state from the persisted flags.
func (a *Account) State() AccountState {
	switch {
	case !a.IsActive:
		return StateDeactivated
	case !a.IsApproved:
		return StatePendingApproval
	default:
		return StateActive
	}
}

// Next returns the state reached by applying ev in s.
func (s AccountState) Next(ev Event) (AccountState, bool) {
	next, ok := transitions[s][ev]
	return next, ok
}

// CanApply reports whether ev is allowed from s.
func (s AccountState) CanApply(ev Event) bool {
	_, ok := s.Next(ev)
	return ok
}
