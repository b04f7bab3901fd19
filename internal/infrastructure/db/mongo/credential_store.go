package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medtrack/careportal/internal/core/domain"
)

const credentialsCollection = "credentials"

// CredentialStore keeps one document per profile. Token and user live in the
// same document and every write is a single-document upsert, which MongoDB
// applies atomically.
type CredentialStore struct {
	coll    *mongo.Collection
	profile string
}

func NewCredentialStore(db *mongo.Database, profile string) *CredentialStore {
	return &CredentialStore{coll: db.Collection(credentialsCollection), profile: profile}
}

type credentialDoc struct {
	Profile   string `bson:"_id"`
	Token     string `bson:"token"`
	User      string `bson:"user"`
	UpdatedAt int64  `bson:"updated_at"`
}

func (s *CredentialStore) Save(ctx context.Context, creds domain.Credentials) error {
	if !creds.Valid() {
		return domain.ErrIncompleteCredentials
	}
	user, err := json.Marshal(creds.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	doc := credentialDoc{
		Profile:   s.profile,
		Token:     creds.Token,
		User:      string(user),
		UpdatedAt: time.Now().Unix(),
	}
	_, err = s.coll.ReplaceOne(ctx, s.profileFilter(), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Load(ctx context.Context) (domain.Credentials, bool, error) {
	var doc credentialDoc
	if err := s.coll.FindOne(ctx, s.profileFilter()).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Credentials{}, false, nil
		}
		return domain.Credentials{}, false, fmt.Errorf("load credentials: %w", err)
	}
	creds, ok := doc.credentials()
	return creds, ok, nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if _, err := s.coll.DeleteOne(ctx, s.profileFilter()); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) ClearIfToken(ctx context.Context, token string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, s.tokenFilter(token))
	if err != nil {
		return false, fmt.Errorf("clear credentials: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *CredentialStore) profileFilter() bson.D {
	return bson.D{{Key: "_id", Value: s.profile}}
}

// tokenFilter matches the profile document only while it still holds token.
func (s *CredentialStore) tokenFilter(token string) bson.D {
	return bson.D{{Key: "_id", Value: s.profile}, {Key: "token", Value: token}}
}

// credentials reports absent for a half-filled document or a user field that
// does not parse.
func (d credentialDoc) credentials() (domain.Credentials, bool) {
	var user domain.UserRecord
	if err := json.Unmarshal([]byte(d.User), &user); err != nil {
		return domain.Credentials{}, false
	}
	creds := domain.Credentials{Token: d.Token, User: user}
	if !creds.Valid() {
		return domain.Credentials{}, false
	}
	return creds, true
}
