package ports

import (
	"context"

	"github.com/medtrack/careportal/internal/core/domain"
)

// AuthAPI is the slice of the medication backend the session core talks to.
// Failures are returned as *domain.APIError.
type AuthAPI interface {
	// Login posts username and password; it never returns an error, failures
	// are folded into domain.LoginFailure.
	Login(ctx context.Context, username, password string) domain.LoginOutcome
	// VerifyTwoFactor exchanges a temporary ticket and a one-time code.
	VerifyTwoFactor(ctx context.Context, ticket domain.TwoFactorTicket, code string) domain.LoginOutcome
	// Me asks the backend who the current bearer token belongs to.
	Me(ctx context.Context) (domain.UserRecord, error)
}
