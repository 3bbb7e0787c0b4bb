package managers

import (
	"context"
	"errors"
	"testing"

	"github.com/flowbaker/regcheck/internal/compose"
	"github.com/flowbaker/regcheck/internal/domain"
	"github.com/flowbaker/regcheck/internal/registry"
	"github.com/flowbaker/regcheck/internal/stores/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(store domain.CredentialStore) domain.ComposeCredentialValidator {
	return NewComposeCredentialValidator(ComposeCredentialValidatorDependencies{
		Parser:       compose.NewParser(),
		Resolver:     registry.NewResolver(registry.ResolverDependencies{Defaults: testDefaults}),
		Store:        store,
		TypeRegistry: domain.NewCredentialTypeRegistry(testDefaults),
	})
}

func seedCredential(t *testing.T, store domain.CredentialStore, credentialType domain.CredentialType, registryURL string, state domain.CredentialState) {
	t.Helper()

	require.NoError(t, store.Insert(context.Background(), domain.Credential{
		AccountID:   "acc",
		Type:        credentialType,
		Username:    "u",
		RegistryURL: registryURL,
		State:       state,
	}))
}

const mixedDescriptor = `
services:
  web:
    image: nginx:1.25
  api:
    image: ghcr.io/acme/api:2.0
  worker:
    image: ghcr.io/acme/worker:2.0
  ml:
    image: europe-docker.pkg.dev/acme/models/ml:1
`

func TestComposeCredentialValidator_Satisfied(t *testing.T) {
	store := memory.NewCredentialStore()
	seedCredential(t, store, domain.CredentialTypeDockerHub, testDefaults.DockerHub, domain.CredentialStateActive)
	seedCredential(t, store, domain.CredentialTypeGithubContainerRegistry, testDefaults.GithubContainerRegistry, domain.CredentialStateActive)
	seedCredential(t, store, domain.CredentialTypeGoogle, testDefaults.Google, domain.CredentialStateActive)

	result, err := newTestValidator(store).Validate(context.Background(), "acc", domain.ComposeDescriptor{Content: mixedDescriptor})

	require.NoError(t, err)
	assert.True(t, result.Satisfied())
	assert.NoError(t, result.Err())
	assert.Len(t, result.Requirements, 3)
}

func TestComposeCredentialValidator_CollectsEveryUnmetRequirement(t *testing.T) {
	store := memory.NewCredentialStore()
	seedCredential(t, store, domain.CredentialTypeDockerHub, testDefaults.DockerHub, domain.CredentialStatePending)
	seedCredential(t, store, domain.CredentialTypeGithubContainerRegistry, "https://ghcr.example.com", domain.CredentialStateActive)

	result, err := newTestValidator(store).Validate(context.Background(), "acc", domain.ComposeDescriptor{Content: mixedDescriptor})

	require.NoError(t, err)
	assert.False(t, result.Satisfied())
	require.Len(t, result.Unmet, 3)

	assert.Equal(t, []string{"web"}, result.Unmet[0].Services)
	assert.Equal(t, domain.CredentialTypeDockerHub, result.Unmet[0].Provider)
	assert.Equal(t, domain.UnmetKindMissing, result.Unmet[0].Kind)

	assert.Equal(t, []string{"api", "worker"}, result.Unmet[1].Services)
	assert.Equal(t, domain.CredentialTypeGithubContainerRegistry, result.Unmet[1].Provider)
	assert.Equal(t, domain.UnmetKindMismatch, result.Unmet[1].Kind)
	assert.Equal(t, "https://ghcr.example.com", result.Unmet[1].StoredRegistryURL)

	assert.Equal(t, []string{"ml"}, result.Unmet[2].Services)
	assert.Equal(t, domain.CredentialTypeGoogle, result.Unmet[2].Provider)
	assert.Equal(t, "europe-docker.pkg.dev", result.Unmet[2].RegistryURL)

	err = result.Err()
	assert.True(t, errors.Is(err, domain.ErrRequirementUnmet))
	assert.True(t, errors.Is(err, domain.ErrRegistryMismatch))
}

func TestComposeCredentialValidator_RegistryMatching(t *testing.T) {
	tests := []struct {
		name        string
		image       string
		seedType    domain.CredentialType
		seedURL     string
		satisfied   bool
		expectedErr error
	}{
		{
			name:      "amazon exact host",
			image:     "123456789012.dkr.ecr.us-east-1.amazonaws.com/web:1",
			seedType:  domain.CredentialTypeAmazon,
			seedURL:   "https://123456789012.dkr.ecr.us-east-1.amazonaws.com",
			satisfied: true,
		},
		{
			name:        "amazon other account",
			image:       "999999999999.dkr.ecr.us-east-1.amazonaws.com/web:1",
			seedType:    domain.CredentialTypeAmazon,
			seedURL:     "https://123456789012.dkr.ecr.us-east-1.amazonaws.com",
			expectedErr: domain.ErrRegistryMismatch,
		},
		{
			name:      "docker hub alias",
			image:     "docker.io/acme/app",
			seedType:  domain.CredentialTypeDockerHub,
			seedURL:   testDefaults.DockerHub,
			satisfied: true,
		},
		{
			name:      "private registry with port",
			image:     "registry.example.com:5000/app",
			seedType:  domain.CredentialTypeDockerRegistry,
			seedURL:   "http://registry.example.com:5000",
			satisfied: true,
		},
		{
			name:        "no credential of that type",
			image:       "acme.azurecr.io/app",
			seedType:    domain.CredentialTypeDockerHub,
			seedURL:     testDefaults.DockerHub,
			expectedErr: domain.ErrRequirementUnmet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewCredentialStore()
			seedCredential(t, store, tt.seedType, tt.seedURL, domain.CredentialStateActive)

			result, err := newTestValidator(store).Validate(context.Background(), "acc", domain.ComposeDescriptor{
				Content: "services:\n  app:\n    image: " + tt.image + "\n",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.satisfied, result.Satisfied())
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(result.Err(), tt.expectedErr))
			}
		})
	}
}

func TestComposeCredentialValidator_Malformed(t *testing.T) {
	store := memory.NewCredentialStore()
	validator := newTestValidator(store)

	_, err := validator.Validate(context.Background(), "acc", domain.ComposeDescriptor{
		Content: "services:\n  web:\n    image: nginx\n  bad:\n    image: \"Not Valid\"\n",
	})

	var descriptorErr *domain.MalformedDescriptorError
	require.True(t, errors.As(err, &descriptorErr))
	assert.Equal(t, "bad", descriptorErr.Service)
	assert.True(t, errors.Is(err, domain.ErrInvalidImageReference))

	_, err = validator.Validate(context.Background(), "acc", domain.ComposeDescriptor{Content: "version: '3'\n"})
	assert.True(t, errors.Is(err, domain.ErrMalformedDescriptor))
}
