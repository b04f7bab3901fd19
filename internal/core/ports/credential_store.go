package ports

import (
	"context"

	"github.com/medtrack/careportal/internal/core/domain"
)

// CredentialStore is the durable mirror of the session's token+user pair.
// Implementations never expose a token without its user or the other way
// round: a half-written or unparseable record loads as absent.
type CredentialStore interface {
	// Save persists the pair atomically. An incomplete pair is rejected with
	// domain.ErrIncompleteCredentials.
	Save(ctx context.Context, creds domain.Credentials) error
	// Load returns the stored pair. ok is false when nothing usable is stored;
	// err is reserved for backend failures.
	Load(ctx context.Context) (creds domain.Credentials, ok bool, err error)
	// Clear removes the pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
	// ClearIfToken removes the pair only when its token equals token and
	// reports whether this call removed it.
	ClearIfToken(ctx context.Context, token string) (bool, error)
	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error
}
