package domain

import (
	"fmt"
	"strings"
)

const DefaultImageTag = "latest"

// ImageReference is an image string split into its registry coordinates.
// An empty RegistryHost means Docker Hub.
type ImageReference struct {
	Raw          string
	RegistryHost string
	Namespace    string
	Repository   string
	Tag          string
	Digest       string
}

func (r ImageReference) HasExplicitHost() bool {
	return r.RegistryHost != ""
}

// Path returns namespace/repository without the registry host.
func (r ImageReference) Path() string {
	if r.Namespace == "" {
		return r.Repository
	}

	return r.Namespace + "/" + r.Repository
}

func (r ImageReference) String() string {
	var sb strings.Builder

	if r.RegistryHost != "" {
		sb.WriteString(r.RegistryHost)
		sb.WriteString("/")
	}

	sb.WriteString(r.Path())

	if r.Tag != "" {
		sb.WriteString(":")
		sb.WriteString(r.Tag)
	}

	if r.Digest != "" {
		sb.WriteString("@")
		sb.WriteString(r.Digest)
	}

	return sb.String()
}

// RegistryRequirement is a registry a credential must exist for.
type RegistryRequirement struct {
	Provider    CredentialType `json:"provider"`
	RegistryURL string         `json:"registry_url"`
}

// Key identifies requirements that a single credential satisfies.
func (r RegistryRequirement) Key() string {
	host, err := ParseRegistryHost(r.RegistryURL)
	if err != nil {
		host = strings.ToLower(strings.TrimSpace(r.RegistryURL))
	}

	return fmt.Sprintf("%s|%s", r.Provider, host)
}

// ServiceImage pairs a compose service with its raw image string.
type ServiceImage struct {
	Service string
	Image   string
}

// ServiceRequirement is a deduplicated requirement with every service that
// produced it, in declaration order.
type ServiceRequirement struct {
	RegistryRequirement
	Services []string `json:"services"`
}
