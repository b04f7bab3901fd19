package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/medtrack/careportal/internal/core/domain"
)

var alice = domain.Credentials{Token: "T1", User: domain.UserRecord{Username: "alice", Role: domain.RolePatient}}

func TestCredentialStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewCredentialStore(path, "")
	ctx := context.Background()

	if _, ok, err := store.Load(ctx); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, alice); err != nil {
		t.Fatalf("Save: %v", err)
	}

	creds, ok, err := NewCredentialStore(path, "").Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if creds != alice {
		t.Fatalf("unexpected credentials %+v", creds)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
}

func TestCredentialStore_DocumentLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewCredentialStore(path, "")
	if err := store.Save(context.Background(), alice); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"token":"T1"`)) {
		t.Fatalf("token key missing: %s", raw)
	}
	if !bytes.Contains(raw, []byte(`"user":"{\"username\":\"alice\",\"role\":\"patient\"}"`)) {
		t.Fatalf("user must be stored as a JSON string: %s", raw)
	}
}

func TestCredentialStore_MalformedIsAbsent(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{{`,
		"user not json":  `{"token":"T1","user":"not-json"}`,
		"token only":     `{"token":"T1"}`,
		"user only":      `{"user":"{\"username\":\"alice\",\"role\":\"patient\"}"}`,
		"empty username": `{"token":"T1","user":"{\"username\":\"\"}"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.json")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			creds, ok, err := NewCredentialStore(path, "").Load(context.Background())
			if err != nil || ok {
				t.Fatalf("expected absent, got %+v ok=%v err=%v", creds, ok, err)
			}
		})
	}
}

func TestCredentialStore_Sealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ctx := context.Background()

	if err := NewCredentialStore(path, "s3cret").Save(ctx, alice); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(raw, []byte("T1")) {
		t.Fatalf("sealed file leaks the token")
	}

	if creds, ok, err := NewCredentialStore(path, "s3cret").Load(ctx); err != nil || !ok || creds != alice {
		t.Fatalf("Load with key: %+v ok=%v err=%v", creds, ok, err)
	}
	if _, ok, err := NewCredentialStore(path, "other").Load(ctx); err != nil || ok {
		t.Fatalf("wrong key must load as absent: ok=%v err=%v", ok, err)
	}
	if _, ok, err := NewCredentialStore(path, "").Load(ctx); err != nil || ok {
		t.Fatalf("sealed file without key must load as absent: ok=%v err=%v", ok, err)
	}
}

func TestCredentialStore_RejectsIncomplete(t *testing.T) {
	store := NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"), "")
	err := store.Save(context.Background(), domain.Credentials{Token: "T1"})
	if err != domain.ErrIncompleteCredentials {
		t.Fatalf("expected ErrIncompleteCredentials, got %v", err)
	}
}

func TestCredentialStore_ClearIsIdempotent(t *testing.T) {
	store := NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"), "")
	ctx := context.Background()

	if err := store.Save(ctx, alice); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("first Clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected empty store")
	}
}

func TestCredentialStore_ClearIfToken(t *testing.T) {
	store := NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"), "")
	ctx := context.Background()
	if err := store.Save(ctx, alice); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if cleared, err := store.ClearIfToken(ctx, "other"); err != nil || cleared {
		t.Fatalf("mismatched token: cleared=%v err=%v", cleared, err)
	}
	if _, ok, _ := store.Load(ctx); !ok {
		t.Fatalf("mismatched token must keep the pair")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleared, err := store.ClearIfToken(ctx, "T1")
			if err != nil {
				t.Errorf("ClearIfToken: %v", err)
			}
			if cleared {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one clear, got %d", wins)
	}
}
