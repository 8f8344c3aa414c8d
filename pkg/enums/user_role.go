package enums

import "fmt"

// UserRole distinguishes the marketplace actors.
type UserRole string

const (
	UserRoleVendor   UserRole = "vendor"
	UserRoleSupplier UserRole = "supplier"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleVendor,
	UserRoleSupplier,
	UserRoleAdmin,
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
