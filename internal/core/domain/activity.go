package domain

import "time"

// Activity kinds recorded in the audit trail besides the lifecycle events.
const (
	ActivityRegistered Event = "register"
	ActivityLogin      Event = "login"
	ActivityProfile    Event = "profile_update"
)

// ActivityRecord is one audit entry for an account.
type ActivityRecord struct {
	AccountID string    `json:"accountId"`
	Event     Event     `json:"event"`
	ActorID   string    `json:"actorId,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	At        time.Time `json:"at"`
}

// AccountStats summarises the credential store for the admin dashboard.
type AccountStats struct {
	Total          int64 `json:"totalUsers"`
	Pending        int64 `json:"pendingUsers"`
	Approved       int64 `json:"approvedUsers"`
	Clinicians     int64 `json:"totalClinicians"`
	Administrators int64 `json:"totalAdministrators"`
	Inactive       int64 `json:"inactiveUsers"`
}
