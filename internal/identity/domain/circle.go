package domain

import "time"

// Circle is a named collaboration group of co-authors. The identity core
// only cares about it as the target of invitations and memberships; story
// content lives elsewhere.
type Circle struct {
	ID        string
	Name      string
	CreatedBy string // user id of the creator
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberRole qualifies a user's membership in one circle.
type MemberRole string

const (
	RoleMember MemberRole = "member"
	RoleAdmin  MemberRole = "admin"
)

// CircleMember joins a user to a circle with a role. Circle admins may
// invite new members; plain members may not.
type CircleMember struct {
	ID        string
	CircleID  string
	UserID    string
	Role      MemberRole
	CreatedAt time.Time
}
