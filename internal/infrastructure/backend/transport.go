package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/ports"
	"github.com/medtrack/careportal/internal/pkg/metrics"
)

// bearerTransport attaches the stored token to outgoing requests and turns a
// 401 on an authenticated request into a one-time global invalidation.
type bearerTransport struct {
	base           http.RoundTripper
	store          ports.CredentialStore
	onUnauthorized func(ctx context.Context, token string)
	log            zerolog.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token := ""
	creds, ok, err := t.store.Load(ctx)
	switch {
	case err != nil:
		t.log.Warn().Err(err).Msg("credential store unavailable, sending request without bearer token")
	case ok:
		token = creds.Token
	}

	if token != "" {
		req = req.Clone(ctx)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	metrics.BackendRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		t.invalidate(ctx, token, req)
	}
	return resp, nil
}

// invalidate clears the stored pair if it still holds token. Only the caller
// that actually removed it fires the hooks, so concurrent 401s for the same
// token produce a single invalidation and a single redirect.
func (t *bearerTransport) invalidate(ctx context.Context, token string, req *http.Request) {
	cleared, err := t.store.ClearIfToken(context.WithoutCancel(ctx), token)
	if err != nil {
		t.log.Error().Err(err).Msg("failed to clear credentials after 401")
		return
	}
	if !cleared {
		t.log.Debug().Str("path", req.URL.Path).Msg("401 for a token that is already cleared")
		return
	}

	metrics.UnauthorizedInvalidationsTotal.Inc()
	t.log.Warn().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Msg("backend rejected bearer token, session invalidated")

	if t.onUnauthorized != nil {
		t.onUnauthorized(ctx, token)
	}
}
