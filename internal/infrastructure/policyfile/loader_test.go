package policyfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"access-grants/internal/domain"
)

const validPolicy = `
unrestricted_roles:
  - admin
  - superadmin
levels:
  viewer:
    auto_approve_min_role: requester
    manual_approve_min_role: manager
  analyst:
    auto_approve_min_role: manager
    manual_approve_min_role: manager
  marketer:
    auto_approve_min_role: manager
    manual_approve_min_role: admin
  editor:
    auto_approve_min_role: admin
    manual_approve_min_role: admin
  administrator:
    auto_approve_min_role: superadmin
    manual_approve_min_role: superadmin
`

func TestParse_ValidPolicy(t *testing.T) {
	cfg, err := Parse([]byte(validPolicy))
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}, cfg.UnrestrictedRoles)

	decision, err := cfg.Policy.Evaluate(domain.RoleRequester, domain.LevelViewer)
	require.NoError(t, err)
	assert.True(t, decision.AutoApproved)

	decision, err = cfg.Policy.Evaluate(domain.RoleRequester, domain.LevelEditor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, decision.RequiredApproverRole)
}

func TestParse_MissingLevelFailsClosed(t *testing.T) {
	const incomplete = `
levels:
  viewer:
    auto_approve_min_role: requester
    manual_approve_min_role: manager
`
	_, err := Parse([]byte(incomplete))
	assert.ErrorIs(t, err, domain.ErrMissingRule)
}

func TestParse_UnknownRole(t *testing.T) {
	const badRole = `
unrestricted_roles:
  - owner
levels: {}
`
	_, err := Parse([]byte(badRole))
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestParse_UnknownLevel(t *testing.T) {
	const badLevel = `
levels:
  owner:
    auto_approve_min_role: admin
    manual_approve_min_role: admin
`
	_, err := Parse([]byte(badLevel))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approval_policy.yml")
	require.NoError(t, os.WriteFile(path, []byte(validPolicy), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, cfg.Policy)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestShippedPolicyFileParses(t *testing.T) {
	root, err := projectRoot()
	require.NoError(t, err)

	cfg, err := Load(filepath.Join(root, "config", "approval_policy.yml"))
	require.NoError(t, err)
	for _, level := range domain.AllPermissionLevels {
		_, err := cfg.Policy.Rule(level)
		assert.NoError(t, err, "level %s", level)
	}
}

func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
