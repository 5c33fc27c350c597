package permissions

// Capability identifies a gated action. Route handlers consult the static
// matrix below before any mutating operation.
type Capability string

const (
	CapMissionView   Capability = "mission.view"
	CapMissionCreate Capability = "mission.create"
	CapMissionEdit   Capability = "mission.edit"
	CapMissionSend   Capability = "mission.send"
	CapMissionReview Capability = "mission.review"

	CapProjectView   Capability = "project.view"
	CapProjectManage Capability = "project.manage"

	CapCompanyView   Capability = "company.view"
	CapCompanyManage Capability = "company.manage"

	CapGalleryView Capability = "gallery.view"

	CapUserManage Capability = "user.manage"
	CapOrgManage  Capability = "org.manage"
)

// capabilityMatrix is the static role -> capability table. Capabilities are
// cumulative along the role order; the matrix lists what each role adds.
var capabilityMatrix = map[GlobalRole][]Capability{
	RoleViewer: {
		CapMissionView,
		CapProjectView,
		CapCompanyView,
		CapGalleryView,
	},
	RoleTeamLeader: {
		CapMissionCreate,
		CapMissionEdit,
		CapMissionSend,
	},
	RoleReviewer: {
		CapMissionReview,
	},
	RoleAdmin: {
		CapProjectManage,
		CapCompanyManage,
		CapUserManage,
		CapOrgManage,
	},
}

// HasCapability reports whether the role grants the capability. Pure
// function of the role; ownership rules (a team leader only edits their own
// missions) are enforced by the services on top of this check.
func HasCapability(role GlobalRole, cap Capability) bool {
	rank, ok := globalRoleRank[role]
	if !ok {
		return false
	}
	for granted, caps := range capabilityMatrix {
		if globalRoleRank[granted] > rank {
			continue
		}
		for _, c := range caps {
			if c == cap {
				return true
			}
		}
	}
	return false
}

// Capabilities returns the full capability set granted to a role.
func Capabilities(role GlobalRole) []Capability {
	rank, ok := globalRoleRank[role]
	if !ok {
		return nil
	}
	var out []Capability
	for granted, caps := range capabilityMatrix {
		if globalRoleRank[granted] <= rank {
			out = append(out, caps...)
		}
	}
	return out
}
