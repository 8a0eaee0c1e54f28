package ports

import (
	"context"
	"time"

	"github.com/cbs/consultation-web/internal/core/domain"
)

// AuthEvent records one session state transition for the audit trail.
type AuthEvent struct {
	SessionKey string
	UserID     string
	Email      string
	Action     string // login, register, logout, invalidated
	From       domain.SessionState
	To         domain.SessionState
	At         time.Time
}

// AuthEventRepository persists audit events.
type AuthEventRepository interface {
	Insert(ctx context.Context, event *AuthEvent) error
}

// AuthEventRecorder accepts audit events without blocking the caller.
type AuthEventRecorder interface {
	Record(event AuthEvent)
}
