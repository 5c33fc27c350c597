package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalRoleOrder(t *testing.T) {
	require.True(t, RoleAdmin.AtLeast(RoleViewer))
	require.True(t, RoleReviewer.AtLeast(RoleReviewer))
	require.False(t, RoleViewer.AtLeast(RoleTeamLeader))
	require.False(t, GlobalRole("u9").AtLeast(RoleViewer))
	require.False(t, RoleAdmin.AtLeast(GlobalRole("u9")))
}

func TestCapabilityMatrix(t *testing.T) {
	cases := []struct {
		role    GlobalRole
		cap     Capability
		allowed bool
	}{
		{RoleViewer, CapMissionView, true},
		{RoleViewer, CapMissionCreate, false},
		{RoleTeamLeader, CapMissionCreate, true},
		{RoleTeamLeader, CapMissionSend, true},
		{RoleTeamLeader, CapMissionReview, false},
		{RoleReviewer, CapMissionReview, true},
		{RoleReviewer, CapMissionCreate, true}, // cumulative along the order
		{RoleReviewer, CapUserManage, false},
		{RoleAdmin, CapUserManage, true},
		{RoleAdmin, CapMissionReview, true},
		{GlobalRole("u9"), CapMissionView, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, HasCapability(tc.role, tc.cap), "%s %s", tc.role, tc.cap)
	}
}

func TestCapabilitiesCumulative(t *testing.T) {
	viewer := Capabilities(RoleViewer)
	admin := Capabilities(RoleAdmin)
	require.Greater(t, len(admin), len(viewer))
	require.Nil(t, Capabilities(GlobalRole("nope")))
}

func TestCanAccessRoute(t *testing.T) {
	require.True(t, CanAccessRoute(RoleViewer, "/api/missions"))
	require.True(t, CanAccessRoute(RoleViewer, "/api/missions/123"))
	require.False(t, CanAccessRoute(RoleViewer, "/api/users"))
	require.True(t, CanAccessRoute(RoleAdmin, "/api/users/42"))
	require.False(t, CanAccessRoute(RoleViewer, "/api/drafts/mission"))
	require.True(t, CanAccessRoute(RoleTeamLeader, "/api/drafts/mission"))
	require.True(t, CanAccessRoute(RoleViewer, "/api/auth/me"))
	// unlisted api paths are denied, non-api paths are ungated
	require.True(t, CanAccessRoute(RoleViewer, "/api/invitations/accept"))
	require.False(t, CanAccessRoute(RoleAdmin, "/api/unknown"))
	require.True(t, CanAccessRoute(RoleViewer, "/health"))
}

func TestDefaultGlobalRoleMapping(t *testing.T) {
	require.Equal(t, RoleViewer, DefaultGlobalRole(OrgRoleObserver))
	require.Equal(t, RoleTeamLeader, DefaultGlobalRole(OrgRoleContributor))
	require.Equal(t, RoleReviewer, DefaultGlobalRole(OrgRoleCoordinator))
	require.Equal(t, RoleAdmin, DefaultGlobalRole(OrgRoleManager))
	require.Equal(t, RoleAdmin, DefaultGlobalRole(OrgRoleOwner))
	require.Equal(t, RoleViewer, DefaultGlobalRole(OrgRole("u9")))
}

func TestParseRoles(t *testing.T) {
	require.Equal(t, RoleReviewer, ParseGlobalRole(" U3 "))
	require.Equal(t, RoleViewer, ParseGlobalRole("u5")) // u5 is org-scope only
	require.Equal(t, OrgRoleOwner, ParseOrgRole("u5"))
	require.Equal(t, OrgRoleObserver, ParseOrgRole("nonsense"))
}
