package domain

import "time"

// SessionState is the lifecycle state of one browser context.
type SessionState string

const (
	StateInitializing  SessionState = "initializing"
	StateAuthenticated SessionState = "authenticated"
	StateAnonymous     SessionState = "anonymous"
)

// Session is the persisted authentication state of one browser context.
// The backend bearer token never leaves the server.
type Session struct {
	User     *User     `json:"user,omitempty"`
	Token    string    `json:"token,omitempty"`
	CachedAt time.Time `json:"cachedAt"`
}

// IsZero reports whether the session carries neither a user nor a token.
func (s *Session) IsZero() bool {
	return s == nil || (s.User == nil && s.Token == "")
}

// Fresh reports whether the cached user is younger than ttl at now.
func (s *Session) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil || s.User == nil {
		return false
	}
	return now.Sub(s.CachedAt) < ttl
}
