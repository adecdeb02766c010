package rbac

// Permission names an atomic capability checked by route guards.
type Permission = string

const (
	PermLedgerView      Permission = "ledger.view"
	PermLedgerRecord    Permission = "ledger.record"
	PermGatePassIssue   Permission = "gatepass.issue"
	PermCreditApprove   Permission = "credit.approve"
	PermCreditRecovery  Permission = "credit.recovery"
	PermSalesView       Permission = "sales.view"
	PermSalesCreate     Permission = "sales.create"
	PermSalesEdit       Permission = "sales.edit"
	PermEnquiriesManage Permission = "enquiries.manage"
	PermInventoryView   Permission = "inventory.view"
	PermInventoryManage Permission = "inventory.manage"
	PermCustomersView   Permission = "customers.view"
	PermCustomersEdit   Permission = "customers.edit"
	PermCustomersDelete Permission = "customers.delete"
	PermUsersView       Permission = "users.view"
	PermUsersManage     Permission = "users.manage"
	PermAuditView       Permission = "audit.view"
	PermDashboardView   Permission = "dashboard.view"
)
