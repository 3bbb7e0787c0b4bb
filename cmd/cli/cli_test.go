package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := NewRootCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

const composeFile = `services:
  web:
    image: nginx
  worker:
    image: ${REGISTRY}/acme/worker:1.0
  api:
    image: ghcr.io/acme/api
`

func TestRequirementsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(composeFile), 0o600))

	out, err := execute(t, "", "requirements", path, "-e", "REGISTRY=123456789012.dkr.ecr.us-east-1.amazonaws.com", "-o", "json")
	require.NoError(t, err)

	var rows []requirementsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &rows))

	assert.Equal(t, []requirementsOutput{
		{Provider: "DockerHub", RegistryURL: "https://index.docker.io/v1/", Services: []string{"web"}},
		{Provider: "Amazon", RegistryURL: "123456789012.dkr.ecr.us-east-1.amazonaws.com", Services: []string{"worker"}},
		{Provider: "GithubContainerRegistry", RegistryURL: "ghcr.io", Services: []string{"api"}},
	}, rows)
}

func TestRequirementsCommand_Stdin(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("services:\n  web:\n    image: quay.io/acme/web\n"))

	out, err := execute(t, encoded, "requirements", "-", "--encoding", "base64")
	require.NoError(t, err)

	var rows []requirementsOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "DockerRegistry", rows[0].Provider)
	assert.Equal(t, "quay.io", rows[0].RegistryURL)
}

func TestRequirementsCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "missing file", args: []string{"requirements", filepath.Join(os.TempDir(), "does-not-exist.yaml")}},
		{name: "malformed", stdin: "services:\n  web: {}\n", args: []string{"requirements", "-"}},
		{name: "bad env pair", stdin: composeFile, args: []string{"requirements", "-", "-e", "NOVALUE"}},
		{name: "bad output", stdin: "services:\n  web:\n    image: nginx\n", args: []string{"requirements", "-", "-o", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestKeysCommands(t *testing.T) {
	out, err := execute(t, "", "keys", "master")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	out, err = execute(t, "", "keys", "signing", "acc", "-o", "json")
	require.NoError(t, err)

	var pair map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &pair))
	assert.Equal(t, "acc", pair["account_id"])
	assert.NotEmpty(t, pair["public_key"])
	assert.NotEmpty(t, pair["private_key"])
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "regcheck "), out)
}
