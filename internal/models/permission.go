package models

// Permission is one fixed capability tag.
type Permission string

const (
	PermViewAllUsers         Permission = "view_all_users"
	PermViewUserDetails      Permission = "view_user_details"
	PermManageUsers          Permission = "manage_users"
	PermViewAllClassrooms    Permission = "view_all_classrooms"
	PermManageClassrooms     Permission = "manage_classrooms"
	PermViewAllGrades        Permission = "view_all_grades"
	PermManageGrades         Permission = "manage_grades"
	PermAccessDebugConsole   Permission = "access_debug_console"
	PermExportData           Permission = "export_data"
	PermSystemAdministration Permission = "system_administration"
)

// Permissions lists all ten permissions in canonical order.
var Permissions = []Permission{
	PermViewAllUsers,
	PermViewUserDetails,
	PermManageUsers,
	PermViewAllClassrooms,
	PermManageClassrooms,
	PermViewAllGrades,
	PermManageGrades,
	PermAccessDebugConsole,
	PermExportData,
	PermSystemAdministration,
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Denial reasons.
const (
	ReasonNotAuthenticated       = "not authenticated"
	ReasonInsufficientPermission = "insufficient permission"
)

// Allow is the permitting decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny builds a refusing decision.
func Deny(reason string) Decision { return Decision{Reason: reason} }
