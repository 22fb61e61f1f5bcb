package user

import "time"

type Role string

const (
	RoleEmployee Role = "employee" // Regular employee, owns timesheets
	RoleManager  Role = "manager"  // First-tier approver for direct reports
	RoleHR       Role = "hr"       // HR reviewer, manager-tier capability
	RoleDirector Role = "director" // Final approver
	RoleAdmin    Role = "admin"    // Administrative override, revert capability
)

// ParseRole maps a claim string to a Role; unknown strings stay unknown
// rather than defaulting to employee.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleEmployee, RoleManager, RoleHR, RoleDirector, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Actor is the authenticated identity attached to every request by the
// session provider. The role always comes from the verified token, never
// from the request body.
type Actor struct {
	ID   string
	Role Role
}

type User struct {
	ID        string
	Email     string
	FullName  string
	Role      Role
	ManagerID *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsManagerTier reports whether the role may act as a first-tier approver.
func (r Role) IsManagerTier() bool {
	switch r {
	case RoleManager, RoleHR, RoleDirector, RoleAdmin:
		return true
	}
	return false
}

// IsFinalTier reports whether the role may act as a final approver.
func (r Role) IsFinalTier() bool {
	return r == RoleDirector || r == RoleAdmin
}
