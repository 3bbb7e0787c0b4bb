package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderError(t *testing.T) {
	fields := domain.FieldErrors{}
	fields.Add(domain.FieldUsername, "can't be blank")

	tests := []struct {
		name     string
		err      error
		status   int
		expected map[string][]string
	}{
		{
			name:     "validation",
			err:      domain.NewValidationError(domain.CredentialTypeDockerHub, fields, true),
			status:   http.StatusUnprocessableEntity,
			expected: map[string][]string{"username": {"can't be blank"}},
		},
		{
			name:     "malformed descriptor",
			err:      &domain.MalformedDescriptorError{Service: "web", Reason: "has no image"},
			status:   http.StatusUnprocessableEntity,
			expected: map[string][]string{"compose_file": {`malformed compose descriptor: service "web" has no image`}},
		},
		{
			name:     "unknown type",
			err:      fmt.Errorf("lookup: %w", domain.ErrUnknownCredentialType),
			status:   http.StatusUnprocessableEntity,
			expected: map[string][]string{"type": {"is not included in the list"}},
		},
		{
			name:     "duplicate",
			err:      domain.ErrDuplicateCredential,
			status:   http.StatusUnprocessableEntity,
			expected: map[string][]string{"type": {"has already been taken"}},
		},
		{
			name:     "not found",
			err:      fmt.Errorf("get: %w", domain.ErrNotFound),
			status:   http.StatusNotFound,
			expected: map[string][]string{"title": {"Credential Not Found"}},
		},
		{
			name:     "fiber error",
			err:      fiber.NewError(fiber.StatusBadRequest, "Invalid request body"),
			status:   http.StatusBadRequest,
			expected: map[string][]string{"title": {"Invalid request body"}},
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset"),
			status:   http.StatusInternalServerError,
			expected: map[string][]string{"title": {"Internal Server Error"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c fiber.Ctx) error {
				return RenderError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expected, body.Errors)
		})
	}
}
