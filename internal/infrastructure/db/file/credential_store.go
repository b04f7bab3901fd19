// Package file persists the session credentials in a single local file, the
// durable mirror a desktop client keeps between runs.
package file

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/medtrack/careportal/internal/core/domain"
)

const (
	keyToken = "token"
	keyUser  = "user"

	nonceSize = 24
	fileMode  = 0o600
	dirMode   = 0o700
)

// CredentialStore writes {"token": ..., "user": "<json>"} to path. Each save
// goes to a temporary file that is renamed over path, so a reader sees either
// the previous pair or the new one, never a mix. When sealed, the document is
// encrypted with NaCl secretbox.
type CredentialStore struct {
	path string
	key  *[32]byte

	mu sync.Mutex
}

// NewCredentialStore returns a store at path. A non-empty secret seals the
// file; the key is the SHA-256 of the secret.
func NewCredentialStore(path, secret string) *CredentialStore {
	s := &CredentialStore{path: path}
	if secret != "" {
		k := sha256.Sum256([]byte(secret))
		s.key = &k
	}
	return s
}

func (s *CredentialStore) Save(_ context.Context, creds domain.Credentials) error {
	if !creds.Valid() {
		return domain.ErrIncompleteCredentials
	}

	user, err := json.Marshal(creds.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	doc, err := json.Marshal(map[string]string{
		keyToken: creds.Token,
		keyUser:  string(user),
	})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(s.seal(doc))
}

// Load treats a missing, unreadable-as-JSON, unopenable or half-filled file
// as absent.
func (s *CredentialStore) Load(_ context.Context) (domain.Credentials, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked()
}

func (s *CredentialStore) ClearIfToken(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, ok, err := s.readLocked()
	if err != nil {
		return false, err
	}
	if !ok || creds.Token != token {
		return false, nil
	}
	if err := s.removeLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Ping checks that the credential directory exists or can be created.
func (s *CredentialStore) Ping(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("credential dir: %w", err)
	}
	return nil
}

func (s *CredentialStore) readLocked() (domain.Credentials, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Credentials{}, false, nil
		}
		return domain.Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}

	doc, ok := s.open(raw)
	if !ok {
		return domain.Credentials{}, false, nil
	}

	var fields map[string]string
	if err := json.Unmarshal(doc, &fields); err != nil {
		return domain.Credentials{}, false, nil
	}
	var user domain.UserRecord
	if err := json.Unmarshal([]byte(fields[keyUser]), &user); err != nil {
		return domain.Credentials{}, false, nil
	}

	creds := domain.Credentials{Token: fields[keyToken], User: user}
	if !creds.Valid() {
		return domain.Credentials{}, false, nil
	}
	return creds, true, nil
}

func (s *CredentialStore) writeLocked(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) removeLocked() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) seal(doc []byte) []byte {
	if s.key == nil {
		return doc
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		panic(fmt.Sprintf("file: read random nonce: %v", err))
	}
	return secretbox.Seal(nonce[:], doc, &nonce, s.key)
}

func (s *CredentialStore) open(raw []byte) ([]byte, bool) {
	if s.key == nil {
		return raw, true
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return nil, false
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	return secretbox.Open(nil, raw[nonceSize:], &nonce, s.key)
}
