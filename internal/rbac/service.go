package rbac

import (
	"sort"

	"github.com/showroom-dms/showroom/internal/shared"
)

var everyone = []Permission{
	PermDashboardView,
	PermLedgerView,
	PermSalesView,
	PermSalesCreate,
	PermEnquiriesManage,
	PermInventoryView,
	PermCustomersView,
	PermCustomersEdit,
}

var rolePermissions = map[shared.Role][]Permission{
	shared.RoleSalesman: everyone,
	shared.RoleAccounts: append(append([]Permission{}, everyone...),
		PermLedgerRecord, PermGatePassIssue, PermCreditRecovery, PermSalesEdit, PermUsersView),
	shared.RoleManager: append(append([]Permission{}, everyone...),
		PermLedgerRecord, PermGatePassIssue, PermCreditApprove, PermCreditRecovery, PermSalesEdit,
		PermInventoryManage, PermUsersView),
	shared.RoleOwner: append(append([]Permission{}, everyone...),
		PermLedgerRecord, PermGatePassIssue, PermCreditApprove, PermCreditRecovery, PermSalesEdit,
		PermInventoryManage, PermUsersView, PermAuditView),
	shared.RoleAdmin: append(append([]Permission{}, everyone...),
		PermLedgerRecord, PermGatePassIssue, PermCreditApprove, PermCreditRecovery, PermSalesEdit,
		PermInventoryManage, PermCustomersDelete, PermUsersView, PermUsersManage, PermAuditView),
}

// PermissionsFor returns the sorted permissions granted to role.
func PermissionsFor(role shared.Role) []Permission {
	granted := append([]Permission{}, rolePermissions[role]...)
	sort.Strings(granted)
	return granted
}

// Allows reports whether role holds perm.
func Allows(role shared.Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
