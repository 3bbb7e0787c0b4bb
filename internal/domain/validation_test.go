package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_Err(t *testing.T) {
	satisfied := ValidationResult{}
	assert.True(t, satisfied.Satisfied())
	assert.NoError(t, satisfied.Err())

	result := ValidationResult{
		Unmet: []UnmetRequirement{
			{Services: []string{"web", "cache"}, Provider: CredentialTypeDockerHub, RegistryURL: "https://index.docker.io/v1/", Kind: UnmetKindMissing},
			{Services: []string{"api"}, Provider: CredentialTypeGithubContainerRegistry, RegistryURL: "ghcr.io", StoredRegistryURL: "https://ghcr.example.com", Kind: UnmetKindMismatch},
		},
	}

	assert.False(t, result.Satisfied())

	err := result.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequirementUnmet))
	assert.True(t, errors.Is(err, ErrRegistryMismatch))

	var unmet *UnmetRequirement
	require.True(t, errors.As(err, &unmet))
	assert.Equal(t, []string{"web", "cache"}, unmet.Services)

	messages := result.Messages()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0], "web, cache")
	assert.Contains(t, messages[1], "https://ghcr.example.com")
}

func TestMalformedDescriptorError(t *testing.T) {
	cause := errors.New("boom")
	err := error(&MalformedDescriptorError{Service: "web", Reason: "has no image", Err: cause})

	assert.True(t, errors.Is(err, ErrMalformedDescriptor))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, `malformed compose descriptor: service "web" has no image`, err.Error())
}

func TestCredential_MaskedPassword(t *testing.T) {
	assert.Equal(t, "", Credential{}.MaskedPassword())
	assert.Equal(t, "********", Credential{Password: "hunter2"}.MaskedPassword())
	assert.Equal(t, "********", Credential{SealedPassword: []byte{1, 2}}.MaskedPassword())
}

func TestCredentialInput_Apply(t *testing.T) {
	username := "  new-user "
	stored := Credential{Type: CredentialTypeDockerHub, Username: "old", Password: "old-pass"}

	updated := CredentialInput{Username: &username}.Apply(stored)

	assert.Equal(t, "new-user", updated.Username)
	assert.Equal(t, "old-pass", updated.Password)
}
