package permissions

import "strings"

// GlobalRole is the coarse platform-wide role attached to a user account.
// Roles form a total order u1 < u2 < u3 < u4 used for "at least this role"
// checks.
type GlobalRole string

const (
	// RoleViewer can consult missions, projects and companies.
	RoleViewer GlobalRole = "u1"
	// RoleTeamLeader creates and submits missions they own.
	RoleTeamLeader GlobalRole = "u2"
	// RoleReviewer validates or rejects submitted missions.
	RoleReviewer GlobalRole = "u3"
	// RoleAdmin manages users, organizations and reference data.
	RoleAdmin GlobalRole = "u4"
)

var globalRoleRank = map[GlobalRole]int{
	RoleViewer:     1,
	RoleTeamLeader: 2,
	RoleReviewer:   3,
	RoleAdmin:      4,
}

// Valid reports whether the value is a known global role.
func (r GlobalRole) Valid() bool {
	_, ok := globalRoleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above other in the role order.
// Unknown roles never satisfy any threshold.
func (r GlobalRole) AtLeast(other GlobalRole) bool {
	rank, ok := globalRoleRank[r]
	if !ok {
		return false
	}
	min, ok := globalRoleRank[other]
	if !ok {
		return false
	}
	return rank >= min
}

// OrgRole is the tenant-scoped role a member holds inside one organization.
// The namespace overlaps GlobalRole in spelling (u1..u5) but is distinct in
// meaning: it only governs what the member may do within that tenant.
type OrgRole string

const (
	OrgRoleObserver    OrgRole = "u1"
	OrgRoleContributor OrgRole = "u2"
	OrgRoleCoordinator OrgRole = "u3"
	OrgRoleManager     OrgRole = "u4"
	OrgRoleOwner       OrgRole = "u5"
)

var orgRoles = map[OrgRole]struct{}{
	OrgRoleObserver:    {},
	OrgRoleContributor: {},
	OrgRoleCoordinator: {},
	OrgRoleManager:     {},
	OrgRoleOwner:       {},
}

// Valid reports whether the value is a known organization role.
func (r OrgRole) Valid() bool {
	_, ok := orgRoles[r]
	return ok
}

// DefaultGlobalRole is the single sanctioned mapping from a tenant role to
// the global role granted to a freshly invited user. The two namespaces are
// never interchangeable anywhere else.
func DefaultGlobalRole(r OrgRole) GlobalRole {
	switch r {
	case OrgRoleObserver:
		return RoleViewer
	case OrgRoleContributor:
		return RoleTeamLeader
	case OrgRoleCoordinator:
		return RoleReviewer
	case OrgRoleManager, OrgRoleOwner:
		return RoleAdmin
	default:
		return RoleViewer
	}
}

// ParseGlobalRole normalises raw input into a GlobalRole, defaulting to
// RoleViewer for unknown values.
func ParseGlobalRole(raw string) GlobalRole {
	role := GlobalRole(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return RoleViewer
	}
	return role
}

// ParseOrgRole normalises raw input into an OrgRole, defaulting to
// OrgRoleObserver for unknown values.
func ParseOrgRole(raw string) OrgRole {
	role := OrgRole(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return OrgRoleObserver
	}
	return role
}
