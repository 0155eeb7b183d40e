package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/roles"
)

func TestZeroRolesGetOpenTierOnly(t *testing.T) {
	got := Targets(roles.NewSet())
	require.Equal(t, []Target{TargetDashboard, TargetProfile, TargetPerformance, TargetGoals, TargetAnnouncements}, got)

	require.False(t, Visible(roles.NewSet(), TargetHR))
	require.False(t, Visible(roles.NewSet(), TargetAdmin))
}

func TestCEOSeesEverything(t *testing.T) {
	ceo := roles.NewSet(roles.RoleCEO)
	for _, target := range allTargets {
		require.True(t, Visible(ceo, target), "ceo must see %s", target)
	}
}

func TestGrantingCEONeverHidesATarget(t *testing.T) {
	for _, base := range roles.All {
		before := roles.NewSet(base)
		after := roles.NewSet(base, roles.RoleCEO)
		for _, target := range allTargets {
			if Visible(before, target) {
				require.True(t, Visible(after, target),
					"adding ceo to %s hid %s", base, target)
			}
		}
	}
}

func TestDepartmentTargets(t *testing.T) {
	cases := []struct {
		role   roles.Role
		target Target
	}{
		{roles.RoleHR, TargetHR},
		{roles.RoleIT, TargetIT},
		{roles.RoleFinance, TargetFinance},
		{roles.RoleManager, TargetManager},
	}
	for _, tc := range cases {
		require.True(t, Visible(roles.NewSet(tc.role), tc.target))
		require.False(t, Visible(roles.NewSet(roles.RoleUser), tc.target))
	}
}

func TestActionGates(t *testing.T) {
	user := roles.NewSet(roles.RoleUser)

	require.True(t, CanCreateGoalFor(user, true))
	require.False(t, CanCreateGoalFor(user, false))
	require.True(t, CanCreateGoalFor(roles.NewSet(roles.RoleManager), false))

	require.False(t, CanPostAnnouncement(user))
	require.True(t, CanPostAnnouncement(roles.NewSet(roles.RoleHR)))

	require.True(t, CanReviewLeave(roles.NewSet(roles.RoleManager)))
	require.False(t, CanReviewExpense(roles.NewSet(roles.RoleManager)))
	require.True(t, CanReviewExpense(roles.NewSet(roles.RoleFinance)))

	require.True(t, CanManageAssets(roles.NewSet(roles.RoleIT)))
	require.False(t, CanManageAssets(roles.NewSet(roles.RoleHR)))

	require.True(t, CanViewAllTransactions(roles.NewSet(roles.RoleFinance)))
	require.False(t, CanViewAllTransactions(user))
}
