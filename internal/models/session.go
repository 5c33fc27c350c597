package models

import "time"

// Session tracks an authenticated login. The refresh token is stored
// hashed; revocation and expiry are checked on refresh.
type Session struct {
	BaseModel

	UserID           string    `gorm:"type:uuid;not null;index" json:"user_id"`
	RefreshTokenHash string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt        time.Time `gorm:"index" json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Active reports whether the session can still be used to refresh tokens.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
