package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const registryCredentialsCollection = "registry_credentials"

type CredentialStore struct {
	database *mongo.Database
}

type credentialDocument struct {
	ObjectID       primitive.ObjectID  `bson:"_id,omitempty"`
	ID             string              `bson:"id"`
	AccountID      string              `bson:"account_id"`
	Type           string              `bson:"type"`
	Username       string              `bson:"username"`
	SealedPassword []byte              `bson:"sealed_password"`
	RegistryURL    string              `bson:"registry_url"`
	State          string              `bson:"state"`
	Errors         map[string][]string `bson:"errors,omitempty"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

func documentFromDomain(c domain.Credential) credentialDocument {
	var errs map[string][]string
	if len(c.Errors) > 0 {
		errs = make(map[string][]string, len(c.Errors))
		for field, messages := range c.Errors {
			errs[string(field)] = messages
		}
	}

	return credentialDocument{
		ID:             c.ID,
		AccountID:      c.AccountID,
		Type:           c.Type.String(),
		Username:       c.Username,
		SealedPassword: c.SealedPassword,
		RegistryURL:    c.RegistryURL,
		State:          string(c.State),
		Errors:         errs,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (d credentialDocument) toDomain() (domain.Credential, error) {
	credentialType, err := domain.ParseCredentialType(d.Type)
	if err != nil {
		return domain.Credential{}, err
	}

	var errs domain.FieldErrors
	if len(d.Errors) > 0 {
		errs = make(domain.FieldErrors, len(d.Errors))
		for field, messages := range d.Errors {
			errs[domain.Field(field)] = messages
		}
	}

	return domain.Credential{
		ID:             d.ID,
		AccountID:      d.AccountID,
		Type:           credentialType,
		Username:       d.Username,
		SealedPassword: d.SealedPassword,
		RegistryURL:    d.RegistryURL,
		State:          domain.CredentialState(d.State),
		Errors:         errs,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

// New returns a store backed by database, creating the unique
// (account_id, type) index on first use.
func New(ctx context.Context, database *mongo.Database) (*CredentialStore, error) {
	store := &CredentialStore{
		database: database,
	}

	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *CredentialStore) collection() *mongo.Collection {
	return s.database.Collection(registryCredentialsCollection)
}

func (s *CredentialStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "account_id", Value: 1},
				{Key: "type", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "account_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
	}

	_, err := s.collection().Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes for %s: %w", registryCredentialsCollection, err)
	}

	log.Debug().Str("collection", registryCredentialsCollection).Msg("Ensured credential indexes")

	return nil
}

func keyFilter(accountID string, credentialType domain.CredentialType) bson.M {
	return bson.M{
		"account_id": accountID,
		"type":       credentialType.String(),
	}
}

func (s *CredentialStore) Insert(ctx context.Context, credential domain.Credential) error {
	_, err := s.collection().InsertOne(ctx, documentFromDomain(credential))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateCredential
		}

		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return nil
}

func (s *CredentialStore) Get(ctx context.Context, accountID string, credentialType domain.CredentialType) (domain.Credential, error) {
	var document credentialDocument

	err := s.collection().FindOne(ctx, keyFilter(accountID, credentialType)).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Credential{}, domain.ErrNotFound
		}

		return domain.Credential{}, fmt.Errorf("failed to find credential: %w", err)
	}

	return document.toDomain()
}

func (s *CredentialStore) List(ctx context.Context, accountID string) ([]domain.Credential, error) {
	findOptions := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := s.collection().Find(ctx, bson.M{"account_id": accountID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find credentials: %w", err)
	}
	defer cursor.Close(ctx)

	var documents []credentialDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}

	credentials := make([]domain.Credential, 0, len(documents))
	for _, document := range documents {
		credential, err := document.toDomain()
		if err != nil {
			return nil, err
		}

		credentials = append(credentials, credential)
	}

	return credentials, nil
}

func (s *CredentialStore) Replace(ctx context.Context, credential domain.Credential) error {
	document := documentFromDomain(credential)

	update := bson.M{
		"$set": bson.M{
			"id":              document.ID,
			"username":        document.Username,
			"sealed_password": document.SealedPassword,
			"registry_url":    document.RegistryURL,
			"state":           document.State,
			"errors":          document.Errors,
			"updated_at":      document.UpdatedAt,
		},
	}

	result, err := s.collection().UpdateOne(ctx, keyFilter(credential.AccountID, credential.Type), update)
	if err != nil {
		return fmt.Errorf("failed to replace credential: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, accountID string, credentialType domain.CredentialType) error {
	result, err := s.collection().DeleteOne(ctx, keyFilter(accountID, credentialType))
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}
