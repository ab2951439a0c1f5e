package domain

import "fmt"

// Role is a ranked identity classification. The ordering is a strict total
// order: every pair of distinct roles compares unequal.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleRequester  Role = "requester"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

var roleLevels = map[Role]int{
	RoleViewer:     1,
	RoleRequester:  2,
	RoleManager:    3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
}

// AllRoles lists every defined role in ascending rank order.
var AllRoles = []Role{RoleViewer, RoleRequester, RoleManager, RoleAdmin, RoleSuperAdmin}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleLevels[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the rank of the role within the hierarchy.
func (r Role) Level() (int, error) {
	level, ok := roleLevels[r]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, r)
	}
	return level, nil
}

// Outranks reports whether a ranks strictly above b.
func Outranks(a, b Role) (bool, error) {
	la, err := a.Level()
	if err != nil {
		return false, err
	}
	lb, err := b.Level()
	if err != nil {
		return false, err
	}
	return la > lb, nil
}

// AtLeast reports whether a ranks at or above b.
func AtLeast(a, b Role) (bool, error) {
	la, err := a.Level()
	if err != nil {
		return false, err
	}
	lb, err := b.Level()
	if err != nil {
		return false, err
	}
	return la >= lb, nil
}

// ManageableRoles returns every role ranked strictly below r.
func ManageableRoles(r Role) ([]Role, error) {
	level, err := r.Level()
	if err != nil {
		return nil, err
	}
	out := make([]Role, 0, len(AllRoles))
	for _, candidate := range AllRoles {
		if roleLevels[candidate] < level {
			out = append(out, candidate)
		}
	}
	return out, nil
}

// ValidateRoleAssignment guards role changes. An actor may only grant roles
// strictly below their own, and may never lower their own role through this
// path.
func ValidateRoleAssignment(actor User, target User, newRole Role) error {
	outranks, err := Outranks(actor.Role, newRole)
	if err != nil {
		return err
	}
	if !outranks {
		return fmt.Errorf("%w: %s may not assign %s", ErrInsufficientPrivilege, actor.Role, newRole)
	}
	// Past the outranking check, newRole is strictly below the actor's own
	// role, so assigning it to themselves is always a demotion.
	if actor.ID == target.ID {
		return ErrSelfDemotion
	}
	return nil
}
