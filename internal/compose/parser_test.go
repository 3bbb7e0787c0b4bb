package compose

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		content  string
		env      map[string]string
		expected []domain.ServiceImage
	}{
		{
			name: "services in declaration order",
			content: `
services:
  web:
    image: nginx:1.25
  api:
    image: ghcr.io/acme/api:2.0
  db:
    image: postgres
`,
			expected: []domain.ServiceImage{
				{Service: "web", Image: "nginx:1.25"},
				{Service: "api", Image: "ghcr.io/acme/api:2.0"},
				{Service: "db", Image: "postgres"},
			},
		},
		{
			name: "legacy top level services",
			content: `
version: "2"
web:
  image: redis
x-common:
  restart: always
`,
			expected: []domain.ServiceImage{
				{Service: "web", Image: "redis"},
			},
		},
		{
			name: "extension keys inside services are skipped",
			content: `
services:
  x-defaults: &defaults
    image: busybox
  worker:
    <<: *defaults
`,
			expected: []domain.ServiceImage{
				{Service: "worker", Image: "busybox"},
			},
		},
		{
			name: "image interpolation with defaults",
			content: `
services:
  app:
    image: ${REGISTRY:-docker.io}/acme/app:${TAG}
`,
			env: map[string]string{"TAG": "v3"},
			expected: []domain.ServiceImage{
				{Service: "app", Image: "docker.io/acme/app:v3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, err := parser.Parse(domain.ComposeDescriptor{
				Content: tt.content,
				Env:     tt.env,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expected, images)
		})
	}
}

func TestParser_Parse_Base64(t *testing.T) {
	content := "services:\n  web:\n    image: 123456789012.dkr.ecr.us-east-1.amazonaws.com/web:1\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	images, err := NewParser().Parse(domain.ComposeDescriptor{
		Content:  encoded[:20] + "\n" + encoded[20:],
		Encoding: domain.DescriptorEncodingBase64,
	})

	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "web", images[0].Service)
	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com/web:1", images[0].Image)
}

func TestParser_Parse_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		encoding domain.DescriptorEncoding
		service  string
	}{
		{
			name:    "empty content",
			content: "   \n",
		},
		{
			name:    "invalid yaml",
			content: "services: [web",
		},
		{
			name:    "top level sequence",
			content: "- web\n- api\n",
		},
		{
			name:    "no services",
			content: "services: {}\n",
		},
		{
			name:    "null services",
			content: "services:\n",
		},
		{
			name:    "services not a mapping",
			content: "services:\n  - web\n",
		},
		{
			name:    "service without image",
			content: "services:\n  web:\n    image: nginx\n  worker:\n    build: .\n",
			service: "worker",
		},
		{
			name:    "service not a mapping",
			content: "services:\n  web: nginx\n",
			service: "web",
		},
		{
			name:    "image is not a scalar",
			content: "services:\n  web:\n    image:\n      name: nginx\n",
			service: "web",
		},
		{
			name:    "empty image",
			content: "services:\n  web:\n    image: \"\"\n",
			service: "web",
		},
		{
			name:    "first offending service is reported",
			content: "services:\n  a:\n    ports: [80]\n  b:\n    ports: [81]\n",
			service: "a",
		},
		{
			name:    "required variable missing",
			content: "services:\n  app:\n    image: ${IMAGE:?image is required}\n",
			service: "app",
		},
		{
			name:     "bad base64",
			content:  "!!not-base64!!",
			encoding: domain.DescriptorEncodingBase64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse(domain.ComposeDescriptor{
				Content:  tt.content,
				Encoding: tt.encoding,
			})

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedDescriptor))

			var descriptorErr *domain.MalformedDescriptorError
			require.True(t, errors.As(err, &descriptorErr))
			assert.Equal(t, tt.service, descriptorErr.Service)
		})
	}
}
