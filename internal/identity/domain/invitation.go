package domain

import "time"

// InvitationStatus is the persisted state of an invitation. Expiry is never
// persisted as a status: a row can read "pending" while being functionally
// expired, so callers must consult Expired alongside Status.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation is a pending offer for an email address to join a circle,
// bound to a single-use token (stored only as a SHA-256 fingerprint) and an
// expiry. It transitions pending -> accepted exactly once and never back.
type Invitation struct {
	ID        string
	Email     string // normalized target address; need not match an existing user
	CircleID  string
	InvitedBy string // user id of the inviter
	TokenHash string
	Status    InvitationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired is the derived expiry predicate. It is a pure function of the
// stored timestamp and the supplied clock, independent of Status.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// InvitationDetail is an invitation with its circle and inviter resolved
// for display.
type InvitationDetail struct {
	Invitation

	CircleName   string
	InviterName  string
	InviterEmail string
}
