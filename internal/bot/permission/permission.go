// Package permission decides whether a caller may run a command.
package permission

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Tier is the privilege level a command requires.
type Tier int

const (
	// TierMember commands are read-only views.
	TierMember Tier = iota
	// TierElevated commands change release state.
	TierElevated
	// TierOwner commands expose instance configuration.
	TierOwner
)

func (t Tier) String() string {
	switch t {
	case TierMember:
		return "member"
	case TierElevated:
		return "elevated"
	case TierOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// Discord permission bits.
const (
	PermissionAdministrator          int64 = 1 << 3
	PermissionManageMessages         int64 = 1 << 13
	PermissionUseApplicationCommands int64 = 1 << 31
)

// DefaultMemberPermissions returns the permission set Discord should require by default
// before showing a command of this tier. The evaluator still decides at invocation time.
func (t Tier) DefaultMemberPermissions() int64 {
	switch t {
	case TierElevated:
		return PermissionManageMessages
	case TierOwner:
		return PermissionAdministrator
	default:
		return PermissionUseApplicationCommands
	}
}

// Membership describes the caller within the guild the command was issued in. It is
// resolved for each invocation and never cached.
type Membership struct {
	UserID    string
	RoleNames []string
	IsOwner   bool
	IsAdmin   bool
}

// Evaluator holds the allow-list of role names.
type Evaluator struct {
	allowed map[string]struct{}
}

// NewEvaluator builds an Evaluator. Role names are compared case-insensitively.
func NewEvaluator(allowedRoles []string) *Evaluator {
	e := &Evaluator{
		allowed: make(map[string]struct{}, len(allowedRoles)),
	}
	for _, r := range allowedRoles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		e.allowed[fold(r)] = struct{}{}
	}
	return e
}

// Allowed reports whether m may run a command of the given tier. A nil membership is
// always denied.
func (e *Evaluator) Allowed(m *Membership, tier Tier) bool {
	if m == nil {
		return false
	}
	if m.IsOwner || m.IsAdmin {
		return true
	}
	if tier == TierOwner {
		return false
	}
	for _, name := range m.RoleNames {
		if _, ok := e.allowed[fold(name)]; ok {
			return true
		}
	}
	return false
}

// AllowedRoles returns the folded allow-list in sorted order.
func (e *Evaluator) AllowedRoles() []string {
	roles := make([]string, 0, len(e.allowed))
	for r := range e.allowed {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// fold returns the case-folded form of s. A Caser keeps state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
