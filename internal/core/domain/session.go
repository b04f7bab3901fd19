package domain

import "time"

// SessionState is a node of the client session state machine.
type SessionState string

const (
	StateAnonymous        SessionState = "anonymous"
	StateAuthenticated    SessionState = "authenticated"
	StatePendingTwoFactor SessionState = "pending_two_factor"
	// StateInvalidated is transient and always resolves back to StateAnonymous.
	StateInvalidated SessionState = "invalidated"
)

// TwoFactorTicket is the short-lived handle issued between a password check
// that requires a second factor and the completion of that factor.
// It only ever lives in memory.
type TwoFactorTicket struct {
	TempToken string    `json:"-"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Expired reports whether the ticket is older than ttl at now.
func (t TwoFactorTicket) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(t.IssuedAt) > ttl
}

// Session is a value snapshot of the live client session.
type Session struct {
	State     SessionState     `json:"state"`
	Token     string           `json:"-"`
	User      *UserRecord      `json:"user,omitempty"`
	Ticket    *TwoFactorTicket `json:"two_factor,omitempty"`
	ExpiresAt time.Time        `json:"expires_at,omitzero"`
}

// Authenticated holds iff the state machine is in StateAuthenticated and both
// the token and the user are present.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.Token != "" && s.User != nil && !s.User.IsZero()
}

// Role returns the current user's role, or "" when nobody is signed in.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
