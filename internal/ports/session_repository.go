package ports

import (
	"context"

	"github.com/dotbot-tools/rxtrace/internal/domain"
)

// SessionRepository persists the counters of the current run.
type SessionRepository interface {
	// Load retrieves the last saved session.
	// Returns an empty session and nil error if none exists.
	Load(ctx context.Context) (domain.Session, error)

	// Save persists the session atomically.
	Save(ctx context.Context, s domain.Session) error
}
