package enums

import (
	"fmt"
	"strings"
)

// UserRole is the coarse role carried in access tokens.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleStaff UserRole = "STAFF"
	UserRoleAdmin UserRole = "ADMIN"
)

var validUserRoles = []UserRole{
	UserRoleUser,
	UserRoleStaff,
	UserRoleAdmin,
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may act on other users' requests.
func (r UserRole) IsStaff() bool {
	return r == UserRoleStaff || r == UserRoleAdmin
}

func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
