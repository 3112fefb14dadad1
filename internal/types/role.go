package types

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a functional responsibility in the multi-agent system that needs a
// model assignment. The set is closed: every consumer iterates Roles().
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RoleOracle       Role = "oracle"
	RoleDesigner     Role = "designer"
	RoleExplorer     Role = "explorer"
	RoleLibrarian    Role = "librarian"
	RoleFixer        Role = "fixer"
)

// ErrUnknownRole is returned by ParseRole for names outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

var allRoles = [...]Role{
	RoleOrchestrator,
	RoleOracle,
	RoleDesigner,
	RoleExplorer,
	RoleLibrarian,
	RoleFixer,
}

// Roles returns every role in plan order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles[:])
	return out
}

// RoleNames returns the role names in plan order.
func RoleNames() []string {
	names := make([]string, len(allRoles))
	for i, r := range allRoles {
		names[i] = string(r)
	}
	return names
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOrchestrator, RoleOracle, RoleDesigner, RoleExplorer, RoleLibrarian, RoleFixer:
		return true
	default:
		return false
	}
}

// Variant returns the reasoning-effort tag propagated into dynamic plans.
// It is execution metadata only; no scoring formula reads it.
func (r Role) Variant() string {
	switch r {
	case RoleOracle:
		return "high"
	case RoleDesigner:
		return "medium"
	case RoleExplorer, RoleLibrarian, RoleFixer:
		return "low"
	default:
		return ""
	}
}

// RequiresToolCall reports whether the role cannot work without tool calling.
func (r Role) RequiresToolCall() bool {
	switch r {
	case RoleOrchestrator, RoleExplorer, RoleLibrarian, RoleFixer:
		return true
	default:
		return false
	}
}

// PrefersSecondaryPick reports whether the role takes a provider's secondary
// explicit pick over the primary one when both are configured.
func (r Role) PrefersSecondaryPick() bool {
	switch r {
	case RoleExplorer, RoleLibrarian, RoleFixer:
		return true
	default:
		return false
	}
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w %q: expected one of: %s", ErrUnknownRole, s, strings.Join(RoleNames(), ", "))
}
