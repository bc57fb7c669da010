package models

import "time"

// Session is the client's cached view of an authenticated user
type Session struct {
	User        *User     `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Usable reports whether the session carries a user and has not expired at now
func (s *Session) Usable(now time.Time) bool {
	return s != nil && s.User != nil && s.AccessToken != "" && s.ExpiresAt.After(now)
}
