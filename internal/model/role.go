package model

// Default role names.  Guest is assigned to every fresh signup; staff and
// superuser grant admin access.
const (
	RoleGuest     = "guest"
	RoleStaff     = "staff"
	RoleSuperuser = "superuser"
)

// protectedRoleNames are the built-in roles the mutation API must never
// rename or delete.
var protectedRoleNames = map[string]bool{
	RoleStaff:     true,
	RoleSuperuser: true,
}

// IsProtectedRoleName reports whether the given role name belongs to the
// fixed set of built-in roles.
func IsProtectedRoleName(name string) bool {
	return protectedRoleNames[name]
}

// Role represents a row in the `roles` table.  Roles form a many-to-many
// relation with users through the roles_users join table.
//
// Fields:
//
//	ID          – numeric identifier of the role.
//	Name        – unique role name.
//	Description – optional free-form description.
//	IsActive    – soft-deactivation flag.
type Role struct {
	ID          uint64 // roles.id
	Name        string // roles.name
	Description string // roles.description
	IsActive    bool   // roles.is_active
	Timestamps
}
