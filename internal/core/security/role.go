package security

import "github.com/samber/lo"

// Role is a member's rank inside an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Roles lists every role from highest to lowest.
var Roles = []Role{RoleOwner, RoleAdmin, RoleMember}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return lo.Contains(Roles, r)
}

// Rank orders roles: owner > admin > member. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() > 0 && r.Rank() >= min.Rank()
}

// Status gates whether a membership may be used.
type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusBlocked  Status = "blocked"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusPending, StatusBlocked:
		return true
	}
	return false
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
