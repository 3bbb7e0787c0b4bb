package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

type UnmetKind string

const (
	UnmetKindMissing  UnmetKind = "missing"
	UnmetKindMismatch UnmetKind = "registry_mismatch"
)

// UnmetRequirement is a registry the account holds no usable credential for.
type UnmetRequirement struct {
	Services          []string       `json:"services"`
	Provider          CredentialType `json:"provider"`
	RegistryURL       string         `json:"registry_url"`
	StoredRegistryURL string         `json:"stored_registry_url,omitempty"`
	Kind              UnmetKind      `json:"kind"`
}

func (u *UnmetRequirement) Error() string {
	services := strings.Join(u.Services, ", ")

	if u.Kind == UnmetKindMismatch {
		return fmt.Sprintf("services [%s]: %s credential is configured for %s, not %s",
			services, u.Provider, u.StoredRegistryURL, u.RegistryURL)
	}

	return fmt.Sprintf("services [%s]: no active %s credential for %s", services, u.Provider, u.RegistryURL)
}

func (u *UnmetRequirement) Is(target error) bool {
	switch target {
	case ErrRequirementUnmet:
		return u.Kind == UnmetKindMissing
	case ErrRegistryMismatch:
		return u.Kind == UnmetKindMismatch
	default:
		return false
	}
}

// ValidationResult lists every registry a descriptor needs and the subset
// that the account cannot pull from.
type ValidationResult struct {
	Requirements []ServiceRequirement `json:"requirements"`
	Unmet        []UnmetRequirement   `json:"unmet"`
}

func (r ValidationResult) Satisfied() bool {
	return len(r.Unmet) == 0
}

// Err aggregates the unmet requirements, or returns nil when satisfied.
func (r ValidationResult) Err() error {
	var result *multierror.Error

	for i := range r.Unmet {
		result = multierror.Append(result, &r.Unmet[i])
	}

	return result.ErrorOrNil()
}

// Messages renders each unmet requirement as a single line.
func (r ValidationResult) Messages() []string {
	messages := make([]string, 0, len(r.Unmet))
	for i := range r.Unmet {
		messages = append(messages, r.Unmet[i].Error())
	}

	return messages
}

type ComposeCredentialValidator interface {
	Validate(ctx context.Context, accountID string, descriptor ComposeDescriptor) (ValidationResult, error)
}

type DescriptorEncoding string

const (
	DescriptorEncodingPlain  DescriptorEncoding = "plain"
	DescriptorEncodingBase64 DescriptorEncoding = "base64"
)

// ComposeDescriptor is an uploaded compose file. Env feeds ${VAR}
// interpolation of image strings.
type ComposeDescriptor struct {
	Content  string
	Encoding DescriptorEncoding
	Path     string
	Env      map[string]string
}
