package auth

import (
	"fmt"
	"strings"
)

// Role is one of the closed set of lab staff roles. The string value is the
// wire value used by the backend and stored in the akin-role cookie.
type Role string

const (
	RoleLabChief     Role = "CHEFE"
	RoleReceptionist Role = "RECEPCIONISTA"
	RoleTechnician   Role = "TECNICO"
)

// AllRoles lists the roles in registry declaration order.
var AllRoles = []Role{RoleLabChief, RoleReceptionist, RoleTechnician}

// ParseRole converts a wire value into a Role. Matching is case-insensitive
// and ignores surrounding whitespace.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleLabChief:
		return RoleLabChief, nil
	case RoleReceptionist:
		return RoleReceptionist, nil
	case RoleTechnician:
		return RoleTechnician, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleLabChief, RoleReceptionist, RoleTechnician:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Label returns the display name shown in the dashboard.
func (r Role) Label() string {
	switch r {
	case RoleLabChief:
		return "Chefe de Laboratório"
	case RoleReceptionist:
		return "Recepcionista"
	case RoleTechnician:
		return "Técnico de Laboratório"
	}
	return ""
}
