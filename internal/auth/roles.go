package auth

import "fmt"

// Role is one of the closed set of application roles.
type Role string

const (
	// RoleAdmin bypasses ownership checks on every aggregate.
	RoleAdmin Role = "ADMIN"
	// RolePremium unlocks paid features; no elevated authority.
	RolePremium Role = "PREMIUM"
)

// RoleSet is the set of roles granted to a principal.
type RoleSet map[Role]struct{}

// Has reports whether the set contains role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// claimRoles maps boolean custom-claim keys to roles. Unknown claim keys
// are ignored, never mapped to a wildcard role.
var claimRoles = map[string]Role{
	"admin":   RoleAdmin,
	"premium": RolePremium,
}

// RolesFrom derives the role set from verified claims. A nil claim set
// (no credentials) yields (nil, false); authenticated claims without any
// role claim yield an empty, non-nil set.
func RolesFrom(claims *ClaimSet) (RoleSet, bool) {
	if claims == nil {
		return nil, false
	}
	roles := make(RoleSet)
	for key, role := range claimRoles {
		if granted, ok := claims.Custom[key].(bool); ok && granted {
			roles[role] = struct{}{}
		}
	}
	return roles, true
}

// ParseRole validates a role name against the closed vocabulary.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RolePremium:
		return RolePremium, nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}
