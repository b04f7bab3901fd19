// Package backend is the authenticated HTTP client for the medication
// backend. Every request carries the stored bearer token, and a 401 on an
// authenticated request invalidates the session globally, exactly once per
// token, before the failure is handed back to the caller.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/ports"
	"github.com/medtrack/careportal/internal/pkg/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Paths are the backend endpoints used by the session core.
type Paths struct {
	Login     string
	TwoFactor string
	Me        string
	Check     string
}

// DefaultPaths match the medication backend's routes.
var DefaultPaths = Paths{
	Login:     "/api/login",
	TwoFactor: "/api/login/2fa",
	Me:        "/api/me",
	Check:     "/api/check",
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Paths   Paths
	// Transport is the underlying round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
	Now       func() time.Time
}

// UnauthorizedHook runs after a 401 cleared the stored credentials for token.
type UnauthorizedHook func(ctx context.Context, token string)

// Client talks to the medication backend on behalf of the signed-in user.
type Client struct {
	baseURL string
	paths   Paths
	http    *http.Client
	now     func() time.Time
	log     zerolog.Logger

	mu    sync.RWMutex
	hooks []UnauthorizedHook
}

// NewClient returns a Client that reads bearer tokens from store.
func NewClient(opts Options, store ports.CredentialStore, log zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	paths := opts.Paths
	if paths == (Paths{}) {
		paths = DefaultPaths
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		paths:   paths,
		now:     now,
		log:     log,
	}
	c.http = &http.Client{
		Timeout: timeout,
		Transport: &bearerTransport{
			base:           base,
			store:          store,
			onUnauthorized: c.fireUnauthorized,
			log:            log,
		},
	}
	return c
}

// OnUnauthorized registers hook to run whenever a 401 invalidates the stored
// session. Hooks run in registration order.
func (c *Client) OnUnauthorized(hook UnauthorizedHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

func (c *Client) fireUnauthorized(ctx context.Context, token string) {
	c.mu.RLock()
	hooks := append([]UnauthorizedHook(nil), c.hooks...)
	c.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, token)
	}
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Username    string      `json:"username"`
	Role        domain.Role `json:"role"`
	Requires2FA bool        `json:"requires_2fa"`
	Token2FA    string      `json:"token_2fa"`
}

type meResponse struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// Login posts the credentials form-encoded and decodes the answer into
// exactly one login outcome.
func (c *Client) Login(ctx context.Context, username, password string) domain.LoginOutcome {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	return c.postLogin(ctx, c.paths.Login, form)
}

// VerifyTwoFactor submits the second factor for a pending login.
func (c *Client) VerifyTwoFactor(ctx context.Context, ticket domain.TwoFactorTicket, code string) domain.LoginOutcome {
	form := url.Values{}
	form.Set("token_2fa", ticket.TempToken)
	form.Set("code", code)
	if ticket.Username != "" {
		form.Set("username", ticket.Username)
	}
	return c.postLogin(ctx, c.paths.TwoFactor, form)
}

// Me returns the user the current bearer token belongs to.
func (c *Client) Me(ctx context.Context) (domain.UserRecord, error) {
	var body meResponse
	if err := c.getJSON(ctx, c.paths.Me, &body); err != nil {
		return domain.UserRecord{}, err
	}
	return domain.UserRecord{Username: body.Username, Role: body.Role}, nil
}

// Check calls the backend's status endpoint and returns its raw JSON body.
func (c *Client) Check(ctx context.Context) (json.RawMessage, error) {
	var body json.RawMessage
	if err := c.getJSON(ctx, c.paths.Check, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// Ping reports whether the backend answers at all. Any HTTP status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.paths.Check, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.APIError{Kind: domain.KindNetwork, Err: err}
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) postLogin(ctx context.Context, path string, form url.Values) domain.LoginOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.LoginFailure{Kind: domain.KindValidation, Message: domain.DefaultLoginFailureMessage}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var body loginResponse
	if err := c.doJSON(req, &body); err != nil {
		msg := domain.DetailOf(err)
		if msg == "" {
			msg = domain.DefaultLoginFailureMessage
		}
		return domain.LoginFailure{Kind: domain.KindOf(err), Message: msg}
	}

	switch {
	case body.Requires2FA && body.Token2FA != "":
		return domain.TwoFactorRequired{Ticket: domain.TwoFactorTicket{
			TempToken: body.Token2FA,
			Username:  body.Username,
			IssuedAt:  c.now(),
		}}
	case body.AccessToken != "":
		return domain.LoginSuccess{
			Token: body.AccessToken,
			User:  domain.UserRecord{Username: body.Username, Role: body.Role},
		}
	default:
		c.log.Error().Str("path", path).Msg("login response carries neither a token nor a two-factor request")
		return domain.LoginFailure{Kind: domain.KindServer, Message: domain.DefaultLoginFailureMessage}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

// doJSON sends req and decodes a 2xx body into out. Failures come back as
// *domain.APIError.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(string(domain.KindNetwork)).Inc()
		return &domain.APIError{Kind: domain.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &domain.APIError{
			Kind:   kindForStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Detail: readDetail(resp.Body),
		}
		metrics.BackendRequestsTotal.WithLabelValues(string(apiErr.Kind)).Inc()
		return apiErr
	}

	metrics.BackendRequestsTotal.WithLabelValues("ok").Inc()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &domain.APIError{Kind: domain.KindServer, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func kindForStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return domain.KindUnauthorized
	case status >= 500:
		return domain.KindServer
	default:
		return domain.KindValidation
	}
}

// readDetail extracts a string "detail" field from an error body. Structured
// details (such as validation error lists) are ignored.
func readDetail(r io.Reader) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return ""
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil {
		return ""
	}
	return detail
}
