package models

// UserRole mirrors the identity directory's role claim. Identity
// management is an external collaborator; the engine only consumes the
// role the gateway asserts on each request.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleRegistrar  UserRole = "registrar"
	RoleAdmin      UserRole = "admin"
)

// ParseUserRole validates a role claim from the gateway. Unknown
// values are rejected rather than defaulted.
func ParseUserRole(value string) (UserRole, bool) {
	switch role := UserRole(value); role {
	case RoleStudent, RoleInstructor, RoleRegistrar, RoleAdmin:
		return role, true
	}
	return "", false
}

// CanReviewDisputes reports whether the role may act on disputes as a
// reviewer.
func (r UserRole) CanReviewDisputes() bool {
	return r == RoleInstructor || r == RoleRegistrar || r == RoleAdmin
}
