package initialization

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowbaker/regcheck/internal/auth"
	"github.com/flowbaker/regcheck/internal/config"
	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	masterKey, err := GenerateMasterKey()
	require.NoError(t, err)

	return &config.Config{
		HTTPAddress: ":0",
		Secrets:     config.SecretsConfig{MasterKey: masterKey},
		Store:       config.StoreConfig{Driver: config.StoreDriverMemory},
		Queue:       config.QueueConfig{Driver: config.QueueDriverLog},
		Auth:        config.AuthConfig{DisableSignatures: true},
		Registries: config.RegistriesConfig{
			DockerHubURL:               "https://index.docker.io/v1/",
			GoogleURL:                  "https://gcr.io",
			GithubContainerRegistryURL: "https://ghcr.io",
		},
	}
}

func TestGenerateMasterKey(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := GenerateMasterKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestGenerateSigningKeyPair(t *testing.T) {
	pair, err := GenerateSigningKeyPair("acc")
	require.NoError(t, err)
	assert.Equal(t, "acc", pair.AccountID)

	signer, err := auth.NewRequestSigner(pair.PrivateKey)
	require.NoError(t, err)

	verifier, err := auth.NewSignatureVerifier(pair.PublicKey)
	require.NoError(t, err)

	headers := signer.SignRequest("GET", "/api/v1/accounts/acc/credentials", nil)
	assert.NoError(t, verifier.VerifyRequest("GET", "/api/v1/accounts/acc/credentials", headers[auth.SignatureHeader], headers[auth.TimestampHeader], nil))
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.MasterKey = ""

	_, err := NewContainer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewContainer_RejectsBadMasterKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.MasterKey = base64.StdEncoding.EncodeToString([]byte("short"))

	_, err := NewContainer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewResolutionContainer(t *testing.T) {
	container := NewResolutionContainer(testConfig(t))

	images, err := container.Parser.Parse(domain.ComposeDescriptor{
		Content: "services:\n  web:\n    image: ghcr.io/acme/web:1.0\n",
	})
	require.NoError(t, err)

	requirements, err := container.Resolver.Requirements(images)
	require.NoError(t, err)
	require.Len(t, requirements, 1)
	assert.Equal(t, domain.CredentialTypeGithubContainerRegistry, requirements[0].Provider)
	assert.Nil(t, container.HTTPServer)
}

func TestNewContainer_ServesSignedRequests(t *testing.T) {
	pair, err := GenerateSigningKeyPair("acc")
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{AccountKeys: map[string]string{"acc": pair.PublicKey}}

	container, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close(context.Background()) })

	signer, err := auth.NewRequestSigner(pair.PrivateKey)
	require.NoError(t, err)

	path := "/api/v1/accounts/acc/credentials"
	body := []byte(`{"credential":{"type":"DockerHub","username":"octo","password":"secret"}}`)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range signer.SignRequest(http.MethodPost, path, body) {
		req.Header.Set(key, value)
	}

	resp, err := container.HTTPServer.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Type     string `json:"type"`
		Password string `json:"password"`
		State    string `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "DockerHub", created.Type)
	assert.Equal(t, "********", created.Password)
	assert.Equal(t, "active", created.State)

	unsigned := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err = container.HTTPServer.Test(unsigned)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
