package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/medtrack/careportal/internal/core/domain"
)

const (
	fieldToken = "token"
	fieldUser  = "user"
)

// clearIfTokenScript deletes the credential hash only when its token field
// matches ARGV[1]. Returns 1 when it deleted the key.
var clearIfTokenScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "token") == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// CredentialStore keeps the token and the serialized user as two fields of a
// single hash, so one HSET writes both and one DEL removes both.
// Key format: <prefix>:credentials:<profile>
type CredentialStore struct {
	client *redis.Client
	key    string
}

// NewCredentialStore wraps client. profile separates several local users
// sharing one Redis.
func NewCredentialStore(client *redis.Client, prefix, profile string) *CredentialStore {
	return &CredentialStore{
		client: client,
		key:    fmt.Sprintf("%s:credentials:%s", prefix, profile),
	}
}

func (s *CredentialStore) Save(ctx context.Context, creds domain.Credentials) error {
	if !creds.Valid() {
		return domain.ErrIncompleteCredentials
	}
	user, err := json.Marshal(creds.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, fieldToken, creds.Token, fieldUser, string(user)).Err(); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Load returns absent for a missing hash (HGETALL yields an empty map), a hash with only one field, or a
// user field that does not parse.
func (s *CredentialStore) Load(ctx context.Context) (domain.Credentials, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.Credentials{}, false, fmt.Errorf("load credentials: %w", err)
	}

	var user domain.UserRecord
	if err := json.Unmarshal([]byte(fields[fieldUser]), &user); err != nil {
		return domain.Credentials{}, false, nil
	}
	creds := domain.Credentials{Token: fields[fieldToken], User: user}
	if !creds.Valid() {
		return domain.Credentials{}, false, nil
	}
	return creds, true, nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) ClearIfToken(ctx context.Context, token string) (bool, error) {
	n, err := clearIfTokenScript.Run(ctx, s.client, []string{s.key}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("clear credentials: %w", err)
	}
	return n > 0, nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
