package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultApprovalPolicy_TotalOverAllLevels(t *testing.T) {
	policy := DefaultApprovalPolicy()
	for _, level := range AllPermissionLevels {
		for _, role := range AllRoles {
			_, err := policy.Evaluate(role, level)
			assert.NoError(t, err, "evaluate %s/%s", role, level)
		}
	}
}

func TestNewApprovalPolicy_MissingRule(t *testing.T) {
	rules := map[PermissionLevel]ApprovalRule{
		LevelViewer: {AutoApproveMinRole: RoleRequester, ManualApproveMinRole: RoleManager},
	}
	_, err := NewApprovalPolicy(rules)
	assert.ErrorIs(t, err, ErrMissingRule)
}

func TestNewApprovalPolicy_UnknownThresholdRole(t *testing.T) {
	rules := map[PermissionLevel]ApprovalRule{}
	for _, level := range AllPermissionLevels {
		rules[level] = ApprovalRule{AutoApproveMinRole: RoleManager, ManualApproveMinRole: RoleManager}
	}
	rules[LevelEditor] = ApprovalRule{AutoApproveMinRole: Role("owner"), ManualApproveMinRole: RoleAdmin}

	_, err := NewApprovalPolicy(rules)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestEvaluate_AutoApproval(t *testing.T) {
	policy := DefaultApprovalPolicy()

	decision, err := policy.Evaluate(RoleRequester, LevelViewer)
	require.NoError(t, err)
	assert.True(t, decision.AutoApproved)
	assert.Empty(t, decision.RequiredApproverRole)
	assert.NotEmpty(t, decision.Reason)
}

func TestEvaluate_ManualApproval(t *testing.T) {
	policy := DefaultApprovalPolicy()

	decision, err := policy.Evaluate(RoleRequester, LevelEditor)
	require.NoError(t, err)
	assert.False(t, decision.AutoApproved)
	assert.Equal(t, RoleAdmin, decision.RequiredApproverRole)
	assert.NotEmpty(t, decision.Reason)
}

func TestEvaluate_UnknownRequesterRole(t *testing.T) {
	policy := DefaultApprovalPolicy()
	_, err := policy.Evaluate(Role("owner"), LevelViewer)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParsePermissionLevel(t *testing.T) {
	level, err := ParsePermissionLevel("editor")
	require.NoError(t, err)
	assert.Equal(t, LevelEditor, level)

	_, err = ParsePermissionLevel("owner")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
