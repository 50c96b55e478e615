package models

import "strings"

// Role is the closed set of user roles.
type Role string

const (
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
	RoleAdmin   Role = "Admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// ParseRole matches a role name case-insensitively.
func ParseRole(raw string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(string(r), strings.TrimSpace(raw)) {
			return r, true
		}
	}
	return "", false
}

// User is identity plus role, keyed by wallet address. CreatedAt is seconds since epoch.
// IsActive defaults to true and no operation clears it.
type User struct {
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username"`
	Role          Role   `json:"role"`
	CreatedAt     int64  `json:"createdAt"`
	IsActive      bool   `json:"isActive"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *Role
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
