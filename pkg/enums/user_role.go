package enums

import "fmt"

// UserRole distinguishes complex administrators from residents.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleResident UserRole = "resident"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleResident,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the role is recognized.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts a raw string into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
