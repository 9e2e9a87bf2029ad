package incident

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the actor's fixed role id.
type Role int

const (
	RoleSystemAdmin   Role = 1
	RoleOfficeAdmin   Role = 2
	RoleGeneralOffice Role = 3
	RoleThreePL       Role = 4
)

var roleNames = map[Role]string{
	RoleSystemAdmin:   "system_admin",
	RoleOfficeAdmin:   "office_admin",
	RoleGeneralOffice: "general_office",
	RoleThreePL:       "3pl",
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// IsAdmin reports SystemAdmin or OfficeAdmin.
func (r Role) IsAdmin() bool {
	return r == RoleSystemAdmin || r == RoleOfficeAdmin
}

// ParseRole accepts a numeric id or a role name. Unknown input is an error; callers
// that must not fail keep the zero Role, which every rule denies.
func ParseRole(raw string) (Role, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty role", ErrUnknownRole)
	}

	if id, err := strconv.Atoi(trimmed); err == nil {
		role := Role(id)
		if !role.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownRole, id)
		}
		return role, nil
	}

	for role, name := range roleNames {
		if name == trimmed {
			return role, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Actor is the authenticated caller as reported by the gateway or CLI flags.
type Actor struct {
	UserID int64
	Role   Role
}
