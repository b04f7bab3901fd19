package domain

// LoginOutcome is the decoded answer of the authentication endpoint. Exactly
// one of LoginSuccess, TwoFactorRequired or LoginFailure is returned.
type LoginOutcome interface {
	loginOutcome()
}

// LoginSuccess carries a long-lived access token and the signed-in user.
type LoginSuccess struct {
	Token string
	User  UserRecord
}

// TwoFactorRequired signals that the password was accepted but a second
// factor must be presented before a session is issued.
type TwoFactorRequired struct {
	Ticket TwoFactorTicket
}

// LoginFailure is a rejected or failed login attempt.
type LoginFailure struct {
	Kind    ErrorKind
	Message string
}

func (LoginSuccess) loginOutcome()      {}
func (TwoFactorRequired) loginOutcome() {}
func (LoginFailure) loginOutcome()      {}

// DefaultLoginFailureMessage is shown when the server gives no detail.
const DefaultLoginFailureMessage = "Login failed"

// LoginResult is what the session service hands back to a login form.
// TwoFactor is set when the server asked for a second factor.
type LoginResult struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Kind      ErrorKind        `json:"kind,omitempty"`
	TwoFactor *TwoFactorTicket `json:"two_factor,omitempty"`
}

// RequiresTwoFactor reports whether the result is a pending second factor.
func (r LoginResult) RequiresTwoFactor() bool {
	return r.TwoFactor != nil
}

// Failed builds an unsuccessful LoginResult.
func Failed(kind ErrorKind, message string) LoginResult {
	if message == "" {
		message = DefaultLoginFailureMessage
	}
	return LoginResult{Success: false, Kind: kind, Message: message}
}
