package models

import "time"

// MissionStatus enumerates the mission workflow states.
type MissionStatus string

const (
	MissionDraft     MissionStatus = "DRAFT"
	MissionPending   MissionStatus = "PENDING"
	MissionCompleted MissionStatus = "COMPLETED"
	MissionRejected  MissionStatus = "REJECTED"
)

// Valid reports whether the value is a known mission status.
func (s MissionStatus) Valid() bool {
	switch s {
	case MissionDraft, MissionPending, MissionCompleted, MissionRejected:
		return true
	}
	return false
}

// Mission is a field inspection report led by one team leader with
// additional member contacts. AgentCount and MarketCount are derived
// (1 + members, number of mission projects) and recomputed on write.
type Mission struct {
	BaseModel

	Number       string        `gorm:"uniqueIndex;not null" json:"number"`
	TeamLeaderID string        `gorm:"type:uuid;not null;index" json:"team_leader_id"`
	TeamLeader   *User         `json:"team_leader,omitempty"`
	Members      []User        `gorm:"many2many:mission_members;" json:"members,omitempty"`
	StartDate    time.Time     `gorm:"not null" json:"start_date"`
	EndDate      time.Time     `gorm:"not null" json:"end_date"`
	Location     string        `json:"location"`
	AgentCount   int           `gorm:"not null;default:1" json:"agent_count"`
	MarketCount  int           `gorm:"not null;default:0" json:"market_count"`
	Status       MissionStatus `gorm:"not null;default:DRAFT;index" json:"status"`

	// ReviewComment holds the mandatory comment attached to a rejection.
	ReviewComment string `json:"review_comment,omitempty"`

	MissionProjects []MissionProject `gorm:"foreignKey:MissionID" json:"mission_projects,omitempty"`
}
