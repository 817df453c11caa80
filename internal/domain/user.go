package domain

import "github.com/witness-org/witness-sub000/internal/auth"

// User is the internal identity record linked to an external subject.
// At most one role is active at a time.
type User struct {
	ID         int64
	ExternalID string
	Role       *auth.Role
	Email      string
	Username   string
}

// Exercise is a catalog entry referenced by exercise logs.
type Exercise struct {
	ID          int64
	Name        string
	Description string
	MuscleGroup string
}

// EffectiveRoles merges the roles carried by the request token with the
// user's stored role. The stored role reflects assignments made after the
// token was minted.
func EffectiveRoles(user *User, tokenRoles auth.RoleSet) auth.RoleSet {
	merged := make(auth.RoleSet, len(tokenRoles)+1)
	for role := range tokenRoles {
		merged[role] = struct{}{}
	}
	if user != nil && user.Role != nil {
		merged[*user.Role] = struct{}{}
	}
	return merged
}
