package permissions

import (
	"sort"
	"strings"
)

// routeTable maps route path prefixes to the minimum global role allowed to
// access them. Longest matching prefix wins.
var routeTable = map[string]GlobalRole{
	"/api/auth":               RoleViewer, // me/logout; login and refresh are unauthenticated
	"/api/missions":           RoleViewer,
	"/api/projects":           RoleViewer,
	"/api/companies":          RoleViewer,
	"/api/gallery":            RoleViewer,
	"/api/drafts":             RoleTeamLeader,
	"/api/users":              RoleAdmin,
	"/api/orgs":               RoleAdmin,
	"/api/invitations/accept": RoleViewer, // invitation acceptance is open to any signed-in user
	"/api/profile":            RoleViewer,
}

var routePrefixes = func() []string {
	prefixes := make([]string, 0, len(routeTable))
	for prefix := range routeTable {
		prefixes = append(prefixes, prefix)
	}
	// longest first so the most specific prefix is matched
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	return prefixes
}()

// CanAccessRoute reports whether the role may reach the route path.
// Unlisted paths under /api are denied; everything else (health, metrics,
// auth) is ungated here.
func CanAccessRoute(role GlobalRole, path string) bool {
	path = strings.TrimSuffix(strings.TrimSpace(path), "/")
	if path == "" || !strings.HasPrefix(path, "/api") {
		return true
	}

	for _, prefix := range routePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return role.AtLeast(routeTable[prefix])
		}
	}
	return false
}
