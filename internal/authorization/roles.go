package authorization

import (
	"fmt"
	"strings"
)

// UserRole is the role a backend account holds. Admins manage users;
// editors only edit content.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleEditor UserRole = "editor"
)

// DefaultRole is preselected when creating a user.
const DefaultRole = RoleEditor

var roleOrder = []UserRole{RoleAdmin, RoleEditor}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	for _, role := range roleOrder {
		if r == role {
			return true
		}
	}
	return false
}

// ParseUserRole normalizes value and reports whether it names a known role.
func ParseUserRole(value string) (UserRole, error) {
	role := UserRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role: %q", value)
	}
	return role, nil
}

// Roles lists the assignable roles, most privileged first.
func Roles() []string {
	roles := make([]string, len(roleOrder))
	for i, role := range roleOrder {
		roles[i] = role.String()
	}
	return roles
}
