package controllers

import (
	"errors"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the envelope every failed request is rendered with.
type ErrorBody struct {
	Errors map[string][]string `json:"errors"`
}

func errorBody(field string, messages ...string) ErrorBody {
	return ErrorBody{Errors: map[string][]string{field: messages}}
}

func fieldErrorBody(fields domain.FieldErrors) ErrorBody {
	body := ErrorBody{Errors: make(map[string][]string, len(fields))}
	for field, messages := range fields {
		body.Errors[string(field)] = messages
	}

	return body
}

// RenderError maps domain errors to HTTP statuses.
func RenderError(c fiber.Ctx, err error) error {
	var (
		validationErr *domain.ValidationError
		descriptorErr *domain.MalformedDescriptorError
		fiberErr      *fiber.Error
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fieldErrorBody(validationErr.Fields))
	case errors.As(err, &descriptorErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody("compose_file", descriptorErr.Error()))
	case errors.Is(err, domain.ErrUnknownCredentialType):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody(string(domain.FieldType), "is not included in the list"))
	case errors.Is(err, domain.ErrDuplicateCredential):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody(string(domain.FieldType), "has already been taken"))
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorBody("title", "Credential Not Found"))
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(errorBody("title", fiberErr.Message))
	}

	log.Error().
		Err(err).
		Str("path", c.Path()).
		Str("method", c.Method()).
		Msg("Request failed")

	return c.Status(fiber.StatusInternalServerError).JSON(errorBody("title", "Internal Server Error"))
}
