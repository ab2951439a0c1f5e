package domain

import "fmt"

// PermissionLevel is the access tier granted on a resource. Distinct from
// Role: a level describes what the target principal may do on the property,
// not who they are in this system.
type PermissionLevel string

const (
	LevelViewer        PermissionLevel = "viewer"
	LevelAnalyst       PermissionLevel = "analyst"
	LevelMarketer      PermissionLevel = "marketer"
	LevelEditor        PermissionLevel = "editor"
	LevelAdministrator PermissionLevel = "administrator"
)

var AllPermissionLevels = []PermissionLevel{
	LevelViewer, LevelAnalyst, LevelMarketer, LevelEditor, LevelAdministrator,
}

func ParsePermissionLevel(s string) (PermissionLevel, error) {
	for _, level := range AllPermissionLevels {
		if PermissionLevel(s) == level {
			return level, nil
		}
	}
	return "", fmt.Errorf("%w: unknown permission level %q", ErrInvalidInput, s)
}

// ApprovalRule holds the two role thresholds for one permission level: the
// rank at which a requester's own ask is auto-approved, and the minimum rank
// a human approver must hold otherwise.
type ApprovalRule struct {
	AutoApproveMinRole   Role `json:"auto_approve_min_role" yaml:"auto_approve_min_role"`
	ManualApproveMinRole Role `json:"manual_approve_min_role" yaml:"manual_approve_min_role"`
}

// Decision is the disposition of a single evaluate call. Reason records
// which rule fired so auto-approvals stay distinguishable in history.
type Decision struct {
	AutoApproved         bool   `json:"auto_approved"`
	RequiredApproverRole Role   `json:"required_approver_role,omitempty"`
	Reason               string `json:"reason"`
}

// ApprovalPolicy is the immutable rule table mapping permission levels to
// approval thresholds. It is loaded once at startup; a gap in the table is a
// deployment defect, so construction fails closed rather than defaulting
// any level to auto-approve.
type ApprovalPolicy struct {
	rules map[PermissionLevel]ApprovalRule
}

func NewApprovalPolicy(rules map[PermissionLevel]ApprovalRule) (*ApprovalPolicy, error) {
	for _, level := range AllPermissionLevels {
		rule, ok := rules[level]
		if !ok {
			return nil, fmt.Errorf("%w: no rule for level %q", ErrMissingRule, level)
		}
		if !rule.AutoApproveMinRole.Valid() {
			return nil, fmt.Errorf("%w: auto-approve threshold for level %q: %q", ErrUnknownRole, level, rule.AutoApproveMinRole)
		}
		if !rule.ManualApproveMinRole.Valid() {
			return nil, fmt.Errorf("%w: manual-approve threshold for level %q: %q", ErrUnknownRole, level, rule.ManualApproveMinRole)
		}
	}
	copied := make(map[PermissionLevel]ApprovalRule, len(rules))
	for level, rule := range rules {
		copied[level] = rule
	}
	return &ApprovalPolicy{rules: copied}, nil
}

// DefaultApprovalPolicy is the shipped rule table. Deployments override it
// with a policy file; see internal/infrastructure/policyfile.
func DefaultApprovalPolicy() *ApprovalPolicy {
	policy, err := NewApprovalPolicy(map[PermissionLevel]ApprovalRule{
		LevelViewer:        {AutoApproveMinRole: RoleRequester, ManualApproveMinRole: RoleManager},
		LevelAnalyst:       {AutoApproveMinRole: RoleManager, ManualApproveMinRole: RoleManager},
		LevelMarketer:      {AutoApproveMinRole: RoleManager, ManualApproveMinRole: RoleAdmin},
		LevelEditor:        {AutoApproveMinRole: RoleAdmin, ManualApproveMinRole: RoleAdmin},
		LevelAdministrator: {AutoApproveMinRole: RoleSuperAdmin, ManualApproveMinRole: RoleSuperAdmin},
	})
	if err != nil {
		panic(err)
	}
	return policy
}

// Rule exposes the thresholds for one level, mainly for reporting.
func (p *ApprovalPolicy) Rule(level PermissionLevel) (ApprovalRule, error) {
	rule, ok := p.rules[level]
	if !ok {
		return ApprovalRule{}, fmt.Errorf("%w: no rule for level %q", ErrMissingRule, level)
	}
	return rule, nil
}

// Evaluate decides whether a requester's ask for the given level is
// auto-approved or names the minimum role that must process it manually.
func (p *ApprovalPolicy) Evaluate(requester Role, level PermissionLevel) (Decision, error) {
	rule, ok := p.rules[level]
	if !ok {
		return Decision{}, fmt.Errorf("%w: no rule for level %q", ErrMissingRule, level)
	}
	auto, err := AtLeast(requester, rule.AutoApproveMinRole)
	if err != nil {
		return Decision{}, err
	}
	if auto {
		return Decision{
			AutoApproved: true,
			Reason:       fmt.Sprintf("role %s meets auto-approve threshold %s for level %s", requester, rule.AutoApproveMinRole, level),
		}, nil
	}
	return Decision{
		RequiredApproverRole: rule.ManualApproveMinRole,
		Reason:               fmt.Sprintf("level %s requires approval by %s or above", level, rule.ManualApproveMinRole),
	}, nil
}
