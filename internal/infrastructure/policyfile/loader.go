// Package policyfile loads the approval rule table and scope configuration
// from a YAML file at startup. A table gap or an unknown role is a
// deployment defect: loading fails and the process must not start.
package policyfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"access-grants/internal/domain"
)

type fileFormat struct {
	UnrestrictedRoles []string                       `yaml:"unrestricted_roles"`
	Levels            map[string]domain.ApprovalRule `yaml:"levels"`
}

// Config is the parsed, validated policy configuration.
type Config struct {
	Policy            *domain.ApprovalPolicy
	UnrestrictedRoles []domain.Role
}

func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(contents)
}

func Parse(contents []byte) (Config, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(contents, &raw); err != nil {
		return Config{}, fmt.Errorf("parse policy file: %w", err)
	}

	unrestricted := make([]domain.Role, 0, len(raw.UnrestrictedRoles))
	for _, name := range raw.UnrestrictedRoles {
		role, err := domain.ParseRole(name)
		if err != nil {
			return Config{}, fmt.Errorf("unrestricted_roles: %w", err)
		}
		unrestricted = append(unrestricted, role)
	}

	rules := make(map[domain.PermissionLevel]domain.ApprovalRule, len(raw.Levels))
	for name, rule := range raw.Levels {
		level, err := domain.ParsePermissionLevel(name)
		if err != nil {
			return Config{}, fmt.Errorf("levels: %w", err)
		}
		rules[level] = rule
	}
	policy, err := domain.NewApprovalPolicy(rules)
	if err != nil {
		return Config{}, err
	}
	return Config{Policy: policy, UnrestrictedRoles: unrestricted}, nil
}
