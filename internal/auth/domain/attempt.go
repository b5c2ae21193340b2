package domain

import "time"

// FailedAttempt tracks consecutive failed logins for one identifier.
// Kept in memory only; it feeds audit logging, not lockout decisions.
type FailedAttempt struct {
	Identifier string
	Count      int
	LastSeen   time.Time
	Reason     string // why the last attempt failed
	OriginIP   string // client address of the last attempt
}
