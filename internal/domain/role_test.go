package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleHierarchy_StrictTotalOrder(t *testing.T) {
	for _, a := range AllRoles {
		for _, b := range AllRoles {
			if a == b {
				continue
			}
			ab, err := Outranks(a, b)
			require.NoError(t, err)
			ba, err := Outranks(b, a)
			require.NoError(t, err)
			assert.Equal(t, ab, !ba, "outranks must be antisymmetric for %s/%s", a, b)
		}
	}
}

func TestRoleHierarchy_Ordering(t *testing.T) {
	outranks, err := Outranks(RoleSuperAdmin, RoleAdmin)
	require.NoError(t, err)
	assert.True(t, outranks)

	outranks, err = Outranks(RoleViewer, RoleRequester)
	require.NoError(t, err)
	assert.False(t, outranks)

	atLeast, err := AtLeast(RoleManager, RoleManager)
	require.NoError(t, err)
	assert.True(t, atLeast)
}

func TestRoleHierarchy_UnknownRole(t *testing.T) {
	_, err := Outranks(Role("owner"), RoleViewer)
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrUnknownRole)

	role, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
}

func TestManageableRoles(t *testing.T) {
	roles, err := ManageableRoles(RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleViewer, RoleRequester, RoleManager}, roles)

	roles, err = ManageableRoles(RoleViewer)
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = ManageableRoles(Role("owner"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestValidateRoleAssignment_RequiresOutranking(t *testing.T) {
	admin := User{ID: "u1", Role: RoleAdmin}
	target := User{ID: "u2", Role: RoleViewer}

	// Admin does not outrank SuperAdmin.
	err := ValidateRoleAssignment(admin, target, RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrInsufficientPrivilege)

	// Nor their own rank.
	err = ValidateRoleAssignment(admin, target, RoleAdmin)
	assert.ErrorIs(t, err, ErrInsufficientPrivilege)

	err = ValidateRoleAssignment(admin, target, RoleManager)
	assert.NoError(t, err)
}

func TestValidateRoleAssignment_SelfDemotion(t *testing.T) {
	for _, role := range AllRoles {
		actor := User{ID: "u1", Role: role}
		manageable, err := ManageableRoles(role)
		require.NoError(t, err)
		for _, lower := range manageable {
			err := ValidateRoleAssignment(actor, actor, lower)
			assert.ErrorIs(t, err, ErrSelfDemotion, "%s demoting self to %s", role, lower)
		}
	}
}

func TestValidateRoleAssignment_UnknownRole(t *testing.T) {
	actor := User{ID: "u1", Role: RoleAdmin}
	err := ValidateRoleAssignment(actor, User{ID: "u2"}, Role("owner"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}
