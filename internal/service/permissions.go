package service

import "github.com/noah-isme/unigrading-api/internal/models"

// rolePermissions is the single role-to-permission table. Ownership restrictions on teachers are
// applied by the classroom and grade services, not here.
var rolePermissions = map[models.Role]map[models.Permission]struct{}{
	models.RoleStudent: {},
	models.RoleTeacher: permissionSet(
		models.PermViewAllClassrooms,
		models.PermManageClassrooms,
		models.PermViewAllGrades,
		models.PermManageGrades,
	),
	models.RoleAdmin: permissionSet(models.Permissions...),
}

var roleDisplay = map[models.Role][2]string{
	models.RoleAdmin:   {"System Administrator", "Full system access"},
	models.RoleTeacher: {"Teacher", "Classroom management access"},
	models.RoleStudent: {"Student", "Limited student access"},
}

func permissionSet(perms ...models.Permission) map[models.Permission]struct{} {
	set := make(map[models.Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// PermissionsFor returns the role's permissions in canonical order. Unknown roles hold none.
func PermissionsFor(role models.Role) []models.Permission {
	set := rolePermissions[role]
	out := make([]models.Permission, 0, len(set))
	for _, p := range models.Permissions {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// HasPermission reports whether role holds perm.
func HasPermission(role models.Role, perm models.Permission) bool {
	_, ok := rolePermissions[role][perm]
	return ok
}

// RoleDisplay returns the human label for a role.
func RoleDisplay(role models.Role) string {
	if d, ok := roleDisplay[role]; ok {
		return d[0]
	}
	return "Unknown"
}

// PermissionLevel describes the breadth of a role's access.
func PermissionLevel(role models.Role) string {
	if d, ok := roleDisplay[role]; ok {
		return d[1]
	}
	return "No access"
}

// SummarisePermissions builds the introspection payload for a user.
func SummarisePermissions(user models.User) models.PermissionSummary {
	return models.PermissionSummary{
		WalletAddress:   user.WalletAddress,
		Role:            user.Role,
		RoleDisplay:     RoleDisplay(user.Role),
		PermissionLevel: PermissionLevel(user.Role),
		Permissions:     PermissionsFor(user.Role),
	}
}
