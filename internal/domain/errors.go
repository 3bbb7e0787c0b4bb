package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownCredentialType = errors.New("unknown credential type")
	ErrDuplicateCredential   = errors.New("credential of this type already exists")
	ErrNotFound              = errors.New("credential not found")
	ErrMalformedDescriptor   = errors.New("malformed compose descriptor")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrInvalidField          = errors.New("invalid field")
	ErrRegistryMismatch      = errors.New("credential registry does not match")
	ErrRequirementUnmet      = errors.New("required credential is missing")
	ErrInvalidImageReference = errors.New("invalid image reference")
)

// FieldErrors maps a credential field name to its validation messages.
type FieldErrors map[Field][]string

func (fe FieldErrors) Add(field Field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// Fields returns the offending field names in a stable order.
func (fe FieldErrors) Fields() []Field {
	fields := make([]Field, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	return fields
}

// ValidationError reports field-level problems with a credential. It matches
// ErrMissingRequiredField when any required field was absent and
// ErrInvalidField otherwise.
type ValidationError struct {
	Type    CredentialType
	Fields  FieldErrors
	missing bool
}

func NewValidationError(t CredentialType, fields FieldErrors, missing bool) *ValidationError {
	return &ValidationError{
		Type:    t,
		Fields:  fields,
		missing: missing,
	}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields.Fields() {
		parts = append(parts, fmt.Sprintf("%s %s", field, strings.Join(e.Fields[field], ", ")))
	}

	return fmt.Sprintf("invalid %s credential: %s", e.Type, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidField {
		return true
	}

	return e.missing && target == ErrMissingRequiredField
}

// MalformedDescriptorError names the service (if any) that made a compose
// descriptor unusable.
type MalformedDescriptorError struct {
	Service string
	Reason  string
	Err     error
}

func (e *MalformedDescriptorError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedDescriptor, e.Reason)
	}

	return fmt.Sprintf("%s: service %q %s", ErrMalformedDescriptor, e.Service, e.Reason)
}

func (e *MalformedDescriptorError) Is(target error) bool {
	return target == ErrMalformedDescriptor
}

func (e *MalformedDescriptorError) Unwrap() error {
	return e.Err
}
