package auth

// Roles carried in tokens and sessions.
const (
	RolePatient = "patient"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// RolesFor derives the role list for an account from its flags. Every
// account is a patient; staff and admin are additive.
func RolesFor(isStaff, isAdmin bool) []string {
	roles := []string{RolePatient}
	if isStaff {
		roles = append(roles, RoleStaff)
	}
	if isAdmin {
		roles = append(roles, RoleAdmin)
	}
	return roles
}
