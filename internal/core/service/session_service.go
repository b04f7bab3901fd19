package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/ports"
	"github.com/medtrack/careportal/internal/pkg/metrics"
)

const defaultTwoFactorTTL = 5 * time.Minute

const (
	msgLoginCancelled      = "Login cancelled"
	msgTwoFactorRequired   = "Two-factor code required"
	msgTwoFactorDisabled   = "Two-factor authentication is not supported"
	msgNoPendingTwoFactor  = "No two-factor login pending"
	msgTwoFactorExpired    = "Two-factor session expired"
	msgTwoFactorMismatched = "Two-factor session does not match"
)

// SessionOptions tunes the session state machine.
type SessionOptions struct {
	TwoFactorEnabled bool
	// TwoFactorTTL bounds how long a pending second factor stays usable.
	TwoFactorTTL time.Duration
	// TokenExpiry extracts the expiry of an access token, zero when unknown.
	TokenExpiry func(token string) time.Time
	Now         func() time.Time
}

// SessionService is the authoritative owner of the client session.
//
// All state lives behind mu. Network calls run without the lock; their
// results are committed under it, together with the matching credential
// store write, so readers never observe a half-applied transition.
type SessionService struct {
	api   ports.AuthAPI
	store ports.CredentialStore
	opts  SessionOptions
	log   zerolog.Logger

	mu        sync.RWMutex
	state     domain.SessionState
	token     string
	user      *domain.UserRecord
	ticket    *domain.TwoFactorTicket
	expiresAt time.Time
	// clears increments on every logout or invalidation. An in-flight login
	// that observes a different value on completion was cancelled.
	clears uint64
	// version increments on every committed transition. Rehydrate only
	// commits the stored pair if nothing else committed while it was loading.
	version uint64
}

// NewSessionService returns an Anonymous session bound to api and store.
func NewSessionService(api ports.AuthAPI, store ports.CredentialStore, opts SessionOptions, log zerolog.Logger) *SessionService {
	if opts.TwoFactorTTL <= 0 {
		opts.TwoFactorTTL = defaultTwoFactorTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenExpiry == nil {
		opts.TokenExpiry = func(string) time.Time { return time.Time{} }
	}
	return &SessionService{
		api:   api,
		store: store,
		opts:  opts,
		log:   log,
		state: domain.StateAnonymous,
	}
}

// Snapshot returns a copy of the current session.
func (s *SessionService) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Session{
		State:     s.state,
		Token:     s.token,
		ExpiresAt: s.expiresAt,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.ticket != nil {
		t := *s.ticket
		snap.Ticket = &t
	}
	return snap
}

// State returns the current state machine node.
func (s *SessionService) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// PendingTicket returns the ticket of a login waiting for its second factor.
func (s *SessionService) PendingTicket() (domain.TwoFactorTicket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != domain.StatePendingTwoFactor || s.ticket == nil {
		return domain.TwoFactorTicket{}, false
	}
	return *s.ticket, true
}

// Login checks username and password against the backend. It never returns
// an error: every failure is reported through the LoginResult.
func (s *SessionService) Login(ctx context.Context, username, password string) domain.LoginResult {
	s.mu.RLock()
	epoch := s.clears
	s.mu.RUnlock()

	outcome := s.api.Login(ctx, username, password)

	switch o := outcome.(type) {
	case domain.LoginSuccess:
		return s.commitLogin(ctx, epoch, o, "password")

	case domain.TwoFactorRequired:
		return s.beginTwoFactor(ctx, epoch, o.Ticket)

	case domain.LoginFailure:
		metrics.LoginAttemptsTotal.WithLabelValues("password", "failure").Inc()
		s.log.Info().
			Str("username", username).
			Str("kind", string(o.Kind)).
			Msg("login rejected")
		return domain.Failed(o.Kind, o.Message)

	default:
		metrics.LoginAttemptsTotal.WithLabelValues("password", "failure").Inc()
		return domain.Failed(domain.KindServer, "")
	}
}

// CompleteTwoFactor finishes a login that is waiting for its second factor.
// A zero ticket selects the pending one. A rejected code keeps the login
// pending so the user can retry until the ticket expires.
func (s *SessionService) CompleteTwoFactor(ctx context.Context, ticket domain.TwoFactorTicket, code string) domain.LoginResult {
	s.mu.Lock()
	if s.state != domain.StatePendingTwoFactor || s.ticket == nil {
		s.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor", "failure").Inc()
		return domain.Failed(domain.KindValidation, msgNoPendingTwoFactor)
	}
	if ticket.TempToken != "" && ticket.TempToken != s.ticket.TempToken {
		s.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor", "failure").Inc()
		return domain.Failed(domain.KindValidation, msgTwoFactorMismatched)
	}
	if s.ticket.Expired(s.opts.Now(), s.opts.TwoFactorTTL) {
		s.resetLocked()
		s.clears++
		s.version++
		s.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor", "failure").Inc()
		metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StateAnonymous), "two_factor_expired").Inc()
		s.log.Info().Msg("two-factor ticket expired")
		return domain.Failed(domain.KindValidation, msgTwoFactorExpired)
	}
	pending := *s.ticket
	epoch := s.clears
	s.mu.Unlock()

	outcome := s.api.VerifyTwoFactor(ctx, pending, code)

	switch o := outcome.(type) {
	case domain.LoginSuccess:
		return s.commitLogin(ctx, epoch, o, "two_factor")

	case domain.LoginFailure:
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor", "failure").Inc()
		s.log.Info().
			Str("username", pending.Username).
			Str("kind", string(o.Kind)).
			Msg("two-factor code rejected")
		return domain.Failed(o.Kind, o.Message)

	default:
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor", "failure").Inc()
		return domain.Failed(domain.KindServer, "")
	}
}

// ResumeTwoFactor re-enters PendingTwoFactor from a ticket obtained by an
// earlier process, so a second-factor code can be submitted across CLI runs.
// The ticket's age restarts now; the backend still enforces its own expiry.
func (s *SessionService) ResumeTwoFactor(ticket domain.TwoFactorTicket) error {
	if !s.opts.TwoFactorEnabled {
		return fmt.Errorf("resume two-factor: %s", msgTwoFactorDisabled)
	}
	if ticket.TempToken == "" {
		return domain.ErrNoPendingTwoFactor
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateAnonymous {
		return fmt.Errorf("resume two-factor: session is %s", s.state)
	}
	ticket.IssuedAt = s.opts.Now()
	s.state = domain.StatePendingTwoFactor
	s.ticket = &ticket
	s.version++
	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StatePendingTwoFactor), "resume").Inc()
	return nil
}

// Logout clears the session and the credential store. Logging out an
// Anonymous session is a no-op.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clears++
	if s.state == domain.StateAnonymous {
		return
	}

	username := s.usernameLocked()
	s.resetLocked()
	s.version++
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to clear credential store on logout")
	}

	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StateAnonymous), "logout").Inc()
	s.log.Info().Str("username", username).Msg("logged out")
}

// Invalidate drops the session after the backend rejected token. It does no
// store I/O: whoever observed the rejection already cleared the store. Calls
// for a token that is no longer live are ignored.
func (s *SessionService) Invalidate(_ context.Context, token, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateAnonymous || (token != "" && token != s.token) {
		return
	}

	username := s.usernameLocked()
	s.log.Warn().Str("username", username).Str("reason", reason).Msg("session invalidated")
	s.resetLocked()
	s.clears++
	s.version++

	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StateInvalidated), reason).Inc()
}

// Rehydrate restores the session persisted by a previous run. It switches to
// Authenticated from the cached credentials right away and then verifies the
// token with the backend. Only a 401 logs the user out; any other failure
// keeps the cached session so a backend outage does not sign anyone out.
//
// The returned error reports a credential store failure; the session is left
// Anonymous in that case. A transition committed while the store was loading
// wins over the loaded pair.
func (s *SessionService) Rehydrate(ctx context.Context) error {
	s.mu.RLock()
	version := s.version
	s.mu.RUnlock()

	creds, ok, err := s.store.Load(ctx)
	if err != nil {
		metrics.RehydrateTotal.WithLabelValues("store_error").Inc()
		s.log.Warn().Err(err).Msg("credential store unavailable, starting anonymous")
		return fmt.Errorf("rehydrate: %w", err)
	}
	if !ok {
		metrics.RehydrateTotal.WithLabelValues("empty").Inc()
		return nil
	}

	s.mu.Lock()
	if s.version != version || s.state != domain.StateAnonymous {
		s.mu.Unlock()
		metrics.RehydrateTotal.WithLabelValues("superseded").Inc()
		s.log.Debug().Msg("session changed while loading credentials, skipping restore")
		return nil
	}
	s.setAuthenticatedLocked(creds)
	s.version++
	s.mu.Unlock()
	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StateAuthenticated), "rehydrate").Inc()
	s.log.Debug().Str("username", creds.User.Username).Msg("session restored from credential store")

	user, err := s.api.Me(ctx)
	switch {
	case err == nil:
		metrics.RehydrateTotal.WithLabelValues("verified").Inc()
		s.replaceUser(ctx, creds.Token, user)
		return nil

	case errors.Is(err, domain.ErrUnauthorized):
		metrics.RehydrateTotal.WithLabelValues("rejected").Inc()
		s.log.Info().Str("username", creds.User.Username).Msg("stored token rejected, signing out")
		s.clearIfToken(ctx, creds.Token, "rehydrate_rejected")
		return nil

	default:
		metrics.RehydrateTotal.WithLabelValues("kept_unverified").Inc()
		s.log.Warn().Err(err).
			Str("username", creds.User.Username).
			Msg("could not verify stored token, keeping cached session")
		return nil
	}
}

// RefreshCurrentUser refetches the signed-in user. Any failure logs the
// session out and is returned to the caller.
func (s *SessionService) RefreshCurrentUser(ctx context.Context) (domain.UserRecord, error) {
	token := s.Snapshot().Token

	user, err := s.api.Me(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("refreshing current user failed, logging out")
		s.Logout(ctx)
		return domain.UserRecord{}, fmt.Errorf("refresh current user: %w", err)
	}

	s.replaceUser(ctx, token, user)
	return user, nil
}

func (s *SessionService) beginTwoFactor(ctx context.Context, epoch uint64, ticket domain.TwoFactorTicket) domain.LoginResult {
	if !s.opts.TwoFactorEnabled {
		metrics.LoginAttemptsTotal.WithLabelValues("password", "failure").Inc()
		s.log.Warn().Str("username", ticket.Username).Msg("backend requested a second factor but two-factor login is disabled")
		return domain.Failed(domain.KindValidation, msgTwoFactorDisabled)
	}

	s.mu.Lock()
	if s.clears != epoch {
		s.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("password", "cancelled").Inc()
		return domain.Failed(domain.KindValidation, msgLoginCancelled)
	}
	if ticket.IssuedAt.IsZero() {
		ticket.IssuedAt = s.opts.Now()
	}
	// A new sign-in replaces whatever pair was stored before it.
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to clear credential store for two-factor login")
	}
	s.resetLocked()
	s.state = domain.StatePendingTwoFactor
	s.ticket = &ticket
	s.version++
	s.mu.Unlock()

	metrics.LoginAttemptsTotal.WithLabelValues("password", "two_factor_required").Inc()
	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StatePendingTwoFactor), "login").Inc()
	s.log.Info().Str("username", ticket.Username).Msg("second factor required")

	out := ticket
	return domain.LoginResult{Success: false, Message: msgTwoFactorRequired, TwoFactor: &out}
}

func (s *SessionService) commitLogin(ctx context.Context, epoch uint64, o domain.LoginSuccess, step string) domain.LoginResult {
	creds := domain.Credentials{Token: o.Token, User: o.User}
	if !creds.Valid() {
		metrics.LoginAttemptsTotal.WithLabelValues(step, "failure").Inc()
		s.log.Error().Msg("backend login response is missing the token or the user")
		return domain.Failed(domain.KindServer, "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clears != epoch {
		metrics.LoginAttemptsTotal.WithLabelValues(step, "cancelled").Inc()
		s.log.Info().Str("username", creds.User.Username).Msg("discarding login that completed after logout")
		return domain.Failed(domain.KindValidation, msgLoginCancelled)
	}

	if err := s.store.Save(ctx, creds); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(step, "failure").Inc()
		s.log.Error().Err(err).Msg("failed to persist credentials")
		return domain.Failed(domain.KindServer, "")
	}
	s.setAuthenticatedLocked(creds)
	s.version++

	metrics.LoginAttemptsTotal.WithLabelValues(step, "success").Inc()
	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StateAuthenticated), "login").Inc()
	s.log.Info().
		Str("username", creds.User.Username).
		Str("role", string(creds.User.Role)).
		Msg("logged in")

	return domain.LoginResult{Success: true}
}

// replaceUser swaps in a freshly fetched user record if token is still the
// live token, and mirrors it to the store.
func (s *SessionService) replaceUser(ctx context.Context, token string, user domain.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateAuthenticated || s.token != token || user.IsZero() {
		return
	}
	if s.user != nil && *s.user == user {
		return
	}

	u := user
	s.user = &u
	s.version++
	if err := s.store.Save(ctx, domain.Credentials{Token: token, User: user}); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist refreshed user")
	}
}

// clearIfToken logs out only if token is still the live token, so a late
// rejection of an old token cannot end a newer session.
func (s *SessionService) clearIfToken(ctx context.Context, token, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		return
	}
	s.resetLocked()
	s.clears++
	s.version++
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to clear credential store")
	}
	metrics.SessionTransitionsTotal.WithLabelValues(string(domain.StateAnonymous), reason).Inc()
}

func (s *SessionService) setAuthenticatedLocked(creds domain.Credentials) {
	u := creds.User
	s.state = domain.StateAuthenticated
	s.token = creds.Token
	s.user = &u
	s.ticket = nil
	s.expiresAt = s.opts.TokenExpiry(creds.Token)
}

func (s *SessionService) resetLocked() {
	s.state = domain.StateAnonymous
	s.token = ""
	s.user = nil
	s.ticket = nil
	s.expiresAt = time.Time{}
}

func (s *SessionService) usernameLocked() string {
	if s.user != nil {
		return s.user.Username
	}
	if s.ticket != nil {
		return s.ticket.Username
	}
	return ""
}
