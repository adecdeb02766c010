package shared

import "strings"

// Role names a staff role. Role checks in the core compare against these values.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleOwner    Role = "Owner"
	RoleManager  Role = "Manager"
	RoleSalesman Role = "Salesman"
	RoleAccounts Role = "Accounts"
)

// ParseRole normalises a stored role string.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin, true
	case "owner":
		return RoleOwner, true
	case "manager":
		return RoleManager, true
	case "salesman", "sales":
		return RoleSalesman, true
	case "accounts", "accountant":
		return RoleAccounts, true
	default:
		return "", false
	}
}

// Actor is the staff member performing an operation. Every state-changing core
// operation receives it explicitly.
type Actor struct {
	ID   int64
	Name string
	Role Role
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CanApproveCredit reports whether the actor may record a credit promise.
func (a Actor) CanApproveCredit() bool {
	return a.HasRole(RoleAdmin, RoleManager, RoleOwner)
}

// IsAdmin reports whether the actor administers users and customer deletion.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
