package service

import (
	"context"

	"github.com/cbs/consultation-web/internal/core/ports"
)

// AuditListener forwards transitions to rec as audit events.
func AuditListener(rec ports.AuthEventRecorder) TransitionListener {
	return func(_ context.Context, t Transition) {
		e := ports.AuthEvent{
			SessionKey: t.SessionKey,
			Action:     t.Action,
			From:       t.From,
			To:         t.To,
			At:         t.At,
		}
		if t.User != nil {
			e.UserID = t.User.ID
			e.Email = t.User.Email
		}
		rec.Record(e)
	}
}
