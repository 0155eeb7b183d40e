// Package policy maps role sets to navigation targets and mutating-action
// gates. Every function here is a pure function of its inputs.
package policy

import "github.com/orgmanage/orgmanage/internal/roles"

// Target identifies a navigation destination in the dashboard.
type Target string

const (
	TargetDashboard     Target = "dashboard"
	TargetCEO           Target = "ceo"
	TargetHR            Target = "hr"
	TargetIT            Target = "it"
	TargetFinance       Target = "finance"
	TargetManager       Target = "manager"
	TargetAdmin         Target = "admin"
	TargetProfile       Target = "profile"
	TargetPerformance   Target = "performance"
	TargetGoals         Target = "goals"
	TargetAnnouncements Target = "announcements"
)

// allTargets lists every target in sidebar order.
var allTargets = []Target{
	TargetDashboard,
	TargetCEO,
	TargetHR,
	TargetIT,
	TargetFinance,
	TargetManager,
	TargetAdmin,
	TargetProfile,
	TargetPerformance,
	TargetGoals,
	TargetAnnouncements,
}

// table maps each restricted target to the roles that may see it. Targets
// absent from the table belong to the "all" tier. The ceo role appears in
// every restricted entry, so granting ceo never hides anything.
var table = map[Target][]roles.Role{
	TargetCEO:     {roles.RoleCEO},
	TargetHR:      {roles.RoleHR, roles.RoleCEO},
	TargetIT:      {roles.RoleIT, roles.RoleCEO},
	TargetFinance: {roles.RoleFinance, roles.RoleCEO},
	TargetManager: {roles.RoleManager, roles.RoleCEO},
	TargetAdmin:   {roles.RoleHR, roles.RoleCEO},
}

// Visible reports whether a principal holding the given role set may see
// the target. A principal with zero assigned roles gets the "all" tier.
func Visible(set roles.Set, target Target) bool {
	required, restricted := table[target]
	if !restricted {
		return true
	}
	return set.HasAny(required...)
}

// Targets returns the navigation destinations visible to the role set, in
// sidebar order.
func Targets(set roles.Set) []Target {
	out := make([]Target, 0, len(allTargets))
	for _, t := range allTargets {
		if Visible(set, t) {
			out = append(out, t)
		}
	}
	return out
}

// Mutating-action gates. These follow the same table as navigation.

// CanCreateGoalFor reports whether the actor may create a goal targeting
// another principal. Anyone may set a goal for themselves.
func CanCreateGoalFor(set roles.Set, self bool) bool {
	if self {
		return true
	}
	return set.HasAny(roles.RoleManager, roles.RoleCEO)
}

// CanPostAnnouncement reports whether the actor may publish announcements.
func CanPostAnnouncement(set roles.Set) bool {
	return set.HasAny(roles.RoleHR, roles.RoleCEO)
}

// CanReviewLeave reports whether the actor may approve or reject leave.
func CanReviewLeave(set roles.Set) bool {
	return set.HasAny(roles.RoleHR, roles.RoleManager, roles.RoleCEO)
}

// CanReviewExpense reports whether the actor may approve or reject expenses.
func CanReviewExpense(set roles.Set) bool {
	return set.HasAny(roles.RoleFinance, roles.RoleCEO)
}

// CanManageAssets reports whether the actor may mutate IT assets/tickets
// beyond their own submissions.
func CanManageAssets(set roles.Set) bool {
	return set.HasAny(roles.RoleIT, roles.RoleCEO)
}

// CanManageUsers reports whether the actor may edit admin panel records.
func CanManageUsers(set roles.Set) bool {
	return set.HasAny(roles.RoleHR, roles.RoleCEO)
}

// CanViewAllTransactions reports whether the actor sees the whole book or
// only their own rows.
func CanViewAllTransactions(set roles.Set) bool {
	return set.HasAny(roles.RoleManager, roles.RoleFinance, roles.RoleCEO)
}
