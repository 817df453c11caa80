package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/witness-org/witness-sub000/internal/auth"
)

func TestAuthorizeOwnerAllowsOwner(t *testing.T) {
	require.NoError(t, AuthorizeOwner(5, 5, nil))
}

func TestAuthorizeOwnerAllowsAdminRegardlessOfOwnership(t *testing.T) {
	roles := auth.RoleSet{auth.RoleAdmin: {}}
	require.NoError(t, AuthorizeOwner(5, 9, roles))
}

func TestAuthorizeOwnerDeniesStranger(t *testing.T) {
	require.ErrorIs(t, AuthorizeOwner(5, 9, nil), ErrNotOwner)
}

func TestAuthorizeOwnerPremiumHasNoElevation(t *testing.T) {
	roles := auth.RoleSet{auth.RolePremium: {}}
	require.ErrorIs(t, AuthorizeOwner(5, 9, roles), ErrNotOwner)
}

func TestEffectiveRolesMergesStoredRole(t *testing.T) {
	admin := auth.RoleAdmin
	user := &User{ID: 1, Role: &admin}
	roles := EffectiveRoles(user, auth.RoleSet{auth.RolePremium: {}})
	require.True(t, roles.Has(auth.RoleAdmin))
	require.True(t, roles.Has(auth.RolePremium))

	require.Empty(t, EffectiveRoles(&User{ID: 2}, nil))
}
