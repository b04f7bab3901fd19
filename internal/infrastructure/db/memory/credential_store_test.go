package memory

import (
	"context"
	"testing"

	"github.com/medtrack/careportal/internal/core/domain"
)

func TestCredentialStore(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()
	creds := domain.Credentials{Token: "T1", User: domain.UserRecord{Username: "alice", Role: domain.RolePatient}}

	if err := store.Save(ctx, domain.Credentials{User: creds.User}); err != domain.ErrIncompleteCredentials {
		t.Fatalf("expected ErrIncompleteCredentials, got %v", err)
	}
	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, ok, err := store.Load(ctx); err != nil || !ok || got != creds {
		t.Fatalf("Load: %+v ok=%v err=%v", got, ok, err)
	}

	if cleared, _ := store.ClearIfToken(ctx, "T0"); cleared {
		t.Fatalf("mismatched token must not clear")
	}
	if cleared, _ := store.ClearIfToken(ctx, "T1"); !cleared {
		t.Fatalf("matching token must clear")
	}
	if cleared, _ := store.ClearIfToken(ctx, "T1"); cleared {
		t.Fatalf("second clear must report false")
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected empty store")
	}
}
