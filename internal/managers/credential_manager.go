package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

type credentialManager struct {
	store     domain.CredentialStore
	types     *domain.CredentialTypeRegistry
	sealer    domain.SecretSealer
	publisher domain.VerificationPublisher
	now       func() time.Time
}

type CredentialManagerDependencies struct {
	Store        domain.CredentialStore
	TypeRegistry *domain.CredentialTypeRegistry
	Sealer       domain.SecretSealer
	Publisher    domain.VerificationPublisher
	Clock        func() time.Time
}

func NewCredentialManager(deps CredentialManagerDependencies) domain.CredentialManager {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &credentialManager{
		store:     deps.Store,
		types:     deps.TypeRegistry,
		sealer:    deps.Sealer,
		publisher: deps.Publisher,
		now:       clock,
	}
}

func (m *credentialManager) ListTypes(ctx context.Context, accountID string) ([]domain.CredentialType, error) {
	credentials, err := m.store.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	credentialTypes := make([]domain.CredentialType, 0, len(credentials))
	for _, credential := range credentials {
		if credential.Listed() {
			credentialTypes = append(credentialTypes, credential.Type)
		}
	}

	return credentialTypes, nil
}

func (m *credentialManager) Get(ctx context.Context, accountID string, credentialType domain.CredentialType) (domain.Credential, error) {
	return m.store.Get(ctx, accountID, credentialType)
}

func (m *credentialManager) Create(ctx context.Context, accountID string, input domain.CredentialInput) (domain.Credential, error) {
	credentialType, err := m.types.Lookup(input.Type)
	if err != nil {
		return domain.Credential{}, err
	}

	credential := input.Apply(domain.Credential{
		AccountID: accountID,
		Type:      credentialType,
	})
	credential = m.types.Normalize(credential)

	if err := m.types.Validate(credential); err != nil {
		return domain.Credential{}, err
	}

	sealed, err := m.sealer.Seal(accountID, []byte(credential.Password))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("failed to seal password: %w", err)
	}

	now := m.now()
	credential.ID = uuid.NewString()
	credential.SealedPassword = sealed
	credential.State = domain.CredentialStatePending
	credential.CreatedAt = now
	credential.UpdatedAt = now

	if err := m.store.Insert(ctx, credential); err != nil {
		return domain.Credential{}, err
	}

	log.Info().
		Str("account_id", accountID).
		Str("credential_id", credential.ID).
		Str("type", credentialType.String()).
		Msg("Credential created")

	activated, err := m.activate(ctx, credential)
	if err != nil {
		return domain.Credential{}, err
	}

	m.publishVerification(ctx, activated, domain.VerificationReasonCreated)

	return activated, nil
}

// Update overlays the supplied fields on the stored credential. Nothing is
// written when the merged credential does not validate.
func (m *credentialManager) Update(ctx context.Context, accountID string, credentialType domain.CredentialType, input domain.CredentialInput) (domain.Credential, error) {
	stored, err := m.store.Get(ctx, accountID, credentialType)
	if err != nil {
		return domain.Credential{}, err
	}

	if input.Password == nil {
		plaintext, err := m.sealer.Open(accountID, stored.SealedPassword)
		if err != nil {
			return domain.Credential{}, fmt.Errorf("failed to open stored password: %w", err)
		}

		stored.Password = string(plaintext)
	}

	credential := m.types.Normalize(input.Apply(stored))

	if err := m.types.Validate(credential); err != nil {
		return domain.Credential{}, err
	}

	sealed, err := m.sealer.Seal(accountID, []byte(credential.Password))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("failed to seal password: %w", err)
	}

	credential.SealedPassword = sealed
	credential.State = domain.CredentialStatePending
	credential.Errors = nil
	credential.UpdatedAt = m.now()

	if err := m.store.Replace(ctx, credential); err != nil {
		return domain.Credential{}, err
	}

	log.Info().
		Str("account_id", accountID).
		Str("credential_id", credential.ID).
		Str("type", credentialType.String()).
		Msg("Credential updated")

	activated, err := m.activate(ctx, credential)
	if err != nil {
		return domain.Credential{}, err
	}

	m.publishVerification(ctx, activated, domain.VerificationReasonUpdated)

	return activated, nil
}

func (m *credentialManager) Delete(ctx context.Context, accountID string, credentialType domain.CredentialType) error {
	if err := m.store.Delete(ctx, accountID, credentialType); err != nil {
		return err
	}

	log.Info().
		Str("account_id", accountID).
		Str("type", credentialType.String()).
		Msg("Credential deleted")

	return nil
}

// Activate re-runs structural validation on the stored credential and
// records the outcome as its state.
func (m *credentialManager) Activate(ctx context.Context, accountID string, credentialType domain.CredentialType) (domain.Credential, error) {
	stored, err := m.store.Get(ctx, accountID, credentialType)
	if err != nil {
		return domain.Credential{}, err
	}

	plaintext, err := m.sealer.Open(accountID, stored.SealedPassword)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("failed to open stored password: %w", err)
	}

	stored.Password = string(plaintext)

	return m.activate(ctx, stored)
}

func (m *credentialManager) activate(ctx context.Context, credential domain.Credential) (domain.Credential, error) {
	err := m.types.Validate(credential)

	var validationErr *domain.ValidationError

	switch {
	case err == nil:
		credential.State = domain.CredentialStateActive
		credential.Errors = nil
	case errors.As(err, &validationErr):
		credential.State = domain.CredentialStateInvalid
		credential.Errors = validationErr.Fields
	default:
		return domain.Credential{}, err
	}

	credential.UpdatedAt = m.now()
	credential.Password = ""

	if err := m.store.Replace(ctx, credential); err != nil {
		return domain.Credential{}, fmt.Errorf("failed to record activation: %w", err)
	}

	log.Debug().
		Str("account_id", credential.AccountID).
		Str("type", credential.Type.String()).
		Str("state", string(credential.State)).
		Msg("Credential activation evaluated")

	return credential, nil
}

func (m *credentialManager) CheckSingle(ctx context.Context, accountID string, credentialType domain.CredentialType) (bool, error) {
	credential, err := m.store.Get(ctx, accountID, credentialType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	return credential.IsActive(), nil
}

func (m *credentialManager) GetDecryptedPassword(ctx context.Context, accountID string, credentialType domain.CredentialType) (string, error) {
	credential, err := m.store.Get(ctx, accountID, credentialType)
	if err != nil {
		return "", err
	}

	plaintext, err := m.sealer.Open(accountID, credential.SealedPassword)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}

	return string(plaintext), nil
}

// publishVerification never fails the caller; the local write is already
// committed.
func (m *credentialManager) publishVerification(ctx context.Context, credential domain.Credential, reason domain.VerificationReason) {
	if m.publisher == nil {
		return
	}

	request := domain.VerificationRequest{
		JobID:        xid.New().String(),
		CredentialID: credential.ID,
		AccountID:    credential.AccountID,
		Type:         credential.Type,
		Reason:       reason,
		RequestedAt:  m.now(),
	}

	if err := m.publisher.PublishVerification(context.WithoutCancel(ctx), request); err != nil {
		log.Error().
			Err(err).
			Str("account_id", credential.AccountID).
			Str("credential_id", credential.ID).
			Str("job_id", request.JobID).
			Msg("Failed to publish credential verification")
	}
}
