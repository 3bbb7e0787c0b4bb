package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/rs/zerolog/log"
)

type DescriptorParser interface {
	Parse(descriptor domain.ComposeDescriptor) ([]domain.ServiceImage, error)
}

type RequirementResolver interface {
	Requirements(images []domain.ServiceImage) ([]domain.ServiceRequirement, error)
}

type composeCredentialValidator struct {
	parser   DescriptorParser
	resolver RequirementResolver
	store    domain.CredentialStore
	types    *domain.CredentialTypeRegistry
}

type ComposeCredentialValidatorDependencies struct {
	Parser       DescriptorParser
	Resolver     RequirementResolver
	Store        domain.CredentialStore
	TypeRegistry *domain.CredentialTypeRegistry
}

func NewComposeCredentialValidator(deps ComposeCredentialValidatorDependencies) domain.ComposeCredentialValidator {
	return &composeCredentialValidator{
		parser:   deps.Parser,
		resolver: deps.Resolver,
		store:    deps.Store,
		types:    deps.TypeRegistry,
	}
}

// Validate checks every registry the descriptor pulls from against the
// account's stored credentials. A malformed descriptor is returned as an
// error; unmet requirements are reported in the result.
func (v *composeCredentialValidator) Validate(ctx context.Context, accountID string, descriptor domain.ComposeDescriptor) (domain.ValidationResult, error) {
	images, err := v.parser.Parse(descriptor)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	requirements, err := v.resolver.Requirements(images)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	result := domain.ValidationResult{
		Requirements: requirements,
		Unmet:        []domain.UnmetRequirement{},
	}

	for _, requirement := range requirements {
		unmet, err := v.check(ctx, accountID, requirement)
		if err != nil {
			return domain.ValidationResult{}, err
		}

		if unmet != nil {
			result.Unmet = append(result.Unmet, *unmet)
		}
	}

	log.Info().
		Str("account_id", accountID).
		Str("path", descriptor.Path).
		Int("requirements", len(result.Requirements)).
		Int("unmet", len(result.Unmet)).
		Msg("Compose credentials checked")

	return result, nil
}

func (v *composeCredentialValidator) check(ctx context.Context, accountID string, requirement domain.ServiceRequirement) (*domain.UnmetRequirement, error) {
	unmet := &domain.UnmetRequirement{
		Services:    requirement.Services,
		Provider:    requirement.Provider,
		RegistryURL: requirement.RegistryURL,
		Kind:        domain.UnmetKindMissing,
	}

	credential, err := v.store.Get(ctx, accountID, requirement.Provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return unmet, nil
		}

		return nil, fmt.Errorf("failed to load %s credential: %w", requirement.Provider, err)
	}

	if !credential.IsActive() {
		return unmet, nil
	}

	if !v.types.SameRegistry(credential.Type, credential.RegistryURL, requirement.RegistryURL) {
		unmet.Kind = domain.UnmetKindMismatch
		unmet.StoredRegistryURL = credential.RegistryURL

		return unmet, nil
	}

	return nil, nil
}
