package models

import (
	"encoding/json"
	"time"
)

// UserRecord is one registered account. Email uniqueness is only checked
// at signup time.
type UserRecord struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AccountInfo is the logged-in user slot.
type AccountInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the single device-wide session slot.
type Session struct {
	ExpiresAt int64 `json:"expiresAt"` // epoch milliseconds
}

// NewSession returns a session that expires ttl after now.
func NewSession(now time.Time, ttl time.Duration) Session {
	return Session{ExpiresAt: now.Add(ttl).UnixMilli()}
}

// Valid reports whether the session is still live at now.
func (s Session) Valid(now time.Time) bool {
	return s.ExpiresAt > 0 && now.UnixMilli() < s.ExpiresAt
}

func (s Session) Expiry() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}

// UnmarshalJSON accepts the older {"expiry": ...} layout as well.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		ExpiresAt *int64 `json:"expiresAt"`
		Expiry    *int64 `json:"expiry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ExpiresAt != nil:
		s.ExpiresAt = *raw.ExpiresAt
	case raw.Expiry != nil:
		s.ExpiresAt = *raw.Expiry
	default:
		s.ExpiresAt = 0
	}
	return nil
}

// Profile is a viewing profile. Only the active one is persisted.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	IsKids bool   `json:"isKids,omitempty"`
}
