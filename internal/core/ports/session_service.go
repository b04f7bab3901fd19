package ports

import (
	"context"

	"github.com/medtrack/careportal/internal/core/domain"
)

// SessionReader is the read side of the session used by the navigation guard.
type SessionReader interface {
	Snapshot() domain.Session
}

// SessionService owns the live client session.
type SessionService interface {
	SessionReader
	Login(ctx context.Context, username, password string) domain.LoginResult
	CompleteTwoFactor(ctx context.Context, ticket domain.TwoFactorTicket, code string) domain.LoginResult
	ResumeTwoFactor(ticket domain.TwoFactorTicket) error
	Logout(ctx context.Context)
	Rehydrate(ctx context.Context) error
	RefreshCurrentUser(ctx context.Context) (domain.UserRecord, error)
	Invalidate(ctx context.Context, token, reason string)
	PendingTicket() (domain.TwoFactorTicket, bool)
}
