package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// CredentialType is the closed set of registry providers a credential can
// authenticate against.
type CredentialType int

const (
	CredentialTypeAmazon CredentialType = iota + 1
	CredentialTypeAzure
	CredentialTypeDockerHub
	CredentialTypeDockerRegistry
	CredentialTypeGoogle
	CredentialTypeGithubContainerRegistry
)

var AllCredentialTypes = []CredentialType{
	CredentialTypeAmazon,
	CredentialTypeAzure,
	CredentialTypeDockerHub,
	CredentialTypeDockerRegistry,
	CredentialTypeGoogle,
	CredentialTypeGithubContainerRegistry,
}

// GoogleJSONKeyUsername is the fixed username Google registries expect when
// the password is a service account JSON key.
const GoogleJSONKeyUsername = "_json_key"

type Field string

const (
	FieldType        Field = "type"
	FieldUsername    Field = "username"
	FieldPassword    Field = "password"
	FieldRegistryURL Field = "registry_url"
)

var credentialTypeAliases = map[string]CredentialType{
	"amazon":                    CredentialTypeAmazon,
	"azure":                     CredentialTypeAzure,
	"docker_hub":                CredentialTypeDockerHub,
	"docker_registry":           CredentialTypeDockerRegistry,
	"google":                    CredentialTypeGoogle,
	"github_container_registry": CredentialTypeGithubContainerRegistry,
}

func (t CredentialType) String() string {
	switch t {
	case CredentialTypeAmazon:
		return "Amazon"
	case CredentialTypeAzure:
		return "Azure"
	case CredentialTypeDockerHub:
		return "DockerHub"
	case CredentialTypeDockerRegistry:
		return "DockerRegistry"
	case CredentialTypeGoogle:
		return "Google"
	case CredentialTypeGithubContainerRegistry:
		return "GithubContainerRegistry"
	default:
		return fmt.Sprintf("CredentialType(%d)", int(t))
	}
}

// Slug returns the snake_case identifier used in URLs and storage.
func (t CredentialType) Slug() string {
	for alias, candidate := range credentialTypeAliases {
		if candidate == t {
			return alias
		}
	}

	return ""
}

func (t CredentialType) Valid() bool {
	_, ok := t.rules()
	return ok
}

// ParseCredentialType accepts either the CamelCase name ("DockerHub") or the
// snake_case slug ("docker_hub").
func ParseCredentialType(id string) (CredentialType, error) {
	id = strings.TrimSpace(id)

	for _, t := range AllCredentialTypes {
		if t.String() == id {
			return t, nil
		}
	}

	if t, ok := credentialTypeAliases[id]; ok {
		return t, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCredentialType, id)
}

func (t CredentialType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCredentialType, int(t))
	}

	return []byte(t.String()), nil
}

func (t *CredentialType) UnmarshalText(text []byte) error {
	parsed, err := ParseCredentialType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// RegistryDefaults holds the fixed endpoints of providers that do not let
// the account choose a registry URL.
type RegistryDefaults struct {
	DockerHub               string
	Google                  string
	GithubContainerRegistry string
}

// TypeRules is the public description of a provider variant.
type TypeRules struct {
	Type               CredentialType
	RequiredFields     []Field
	DefaultRegistryURL string
	HasDefaultURL      bool
}

// CredentialTypeRegistry answers per-provider questions about fields,
// defaults and validation.
type CredentialTypeRegistry struct {
	defaults RegistryDefaults
}

func NewCredentialTypeRegistry(defaults RegistryDefaults) *CredentialTypeRegistry {
	return &CredentialTypeRegistry{defaults: defaults}
}

func (r *CredentialTypeRegistry) Defaults() RegistryDefaults {
	return r.defaults
}

func (r *CredentialTypeRegistry) Lookup(id string) (CredentialType, error) {
	return ParseCredentialType(id)
}

// Rules returns the rule set of the provider identified by id.
func (r *CredentialTypeRegistry) Rules(id string) (TypeRules, error) {
	t, err := r.Lookup(id)
	if err != nil {
		return TypeRules{}, err
	}

	defaultURL, ok := r.DefaultRegistryURL(t)

	return TypeRules{
		Type:               t,
		RequiredFields:     r.RequiredFields(t),
		DefaultRegistryURL: defaultURL,
		HasDefaultURL:      ok,
	}, nil
}

func (r *CredentialTypeRegistry) RequiredFields(t CredentialType) []Field {
	rules, ok := t.rules()
	if !ok {
		return nil
	}

	return append([]Field(nil), rules.requiredFields()...)
}

func (r *CredentialTypeRegistry) DefaultRegistryURL(t CredentialType) (string, bool) {
	rules, ok := t.rules()
	if !ok {
		return "", false
	}

	return rules.defaultRegistryURL(r.defaults)
}

func (r *CredentialTypeRegistry) NormalizeUsername(t CredentialType, supplied string) string {
	rules, ok := t.rules()
	if !ok {
		return supplied
	}

	return rules.normalizeUsername(supplied)
}

// Normalize applies the provider's fixed registry URL and username
// canonicalization. Other fields are left untouched.
func (r *CredentialTypeRegistry) Normalize(c Credential) Credential {
	if defaultURL, ok := r.DefaultRegistryURL(c.Type); ok {
		c.RegistryURL = defaultURL
	}

	c.Username = r.NormalizeUsername(c.Type, c.Username)

	return c
}

// Validate runs the structural checks that gate activation. The returned
// error is a *ValidationError or wraps ErrUnknownCredentialType.
func (r *CredentialTypeRegistry) Validate(c Credential) error {
	rules, ok := c.Type.rules()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCredentialType, int(c.Type))
	}

	errs := FieldErrors{}
	missing := false

	for _, field := range rules.requiredFields() {
		if strings.TrimSpace(c.fieldValue(field)) == "" {
			errs.Add(field, "can't be blank")
			missing = true
		}
	}

	if c.RegistryURL != "" {
		if _, err := ParseRegistryHost(c.RegistryURL); err != nil {
			errs.Add(FieldRegistryURL, "is not a valid registry URL")
		}
	}

	if errs.Empty() {
		rules.validate(c, errs)
	}

	if errs.Empty() {
		return nil
	}

	return NewValidationError(c.Type, errs, missing)
}

// SameRegistry reports whether a stored credential of type t, configured
// for storedURL, can pull from requiredURL.
func (r *CredentialTypeRegistry) SameRegistry(t CredentialType, storedURL, requiredURL string) bool {
	rules, ok := t.rules()
	if !ok {
		return false
	}

	return rules.sameRegistry(storedURL, requiredURL)
}

type providerRules interface {
	requiredFields() []Field
	defaultRegistryURL(defaults RegistryDefaults) (string, bool)
	normalizeUsername(supplied string) string
	validate(c Credential, errs FieldErrors)
	sameRegistry(storedURL, requiredURL string) bool
}

func (t CredentialType) rules() (providerRules, bool) {
	switch t {
	case CredentialTypeAmazon:
		return amazonRules{}, true
	case CredentialTypeAzure:
		return azureRules{}, true
	case CredentialTypeDockerHub:
		return dockerHubRules{}, true
	case CredentialTypeDockerRegistry:
		return dockerRegistryRules{}, true
	case CredentialTypeGoogle:
		return googleRules{}, true
	case CredentialTypeGithubContainerRegistry:
		return githubContainerRegistryRules{}, true
	default:
		return nil, false
	}
}

// userDefinedRegistry is shared by providers whose registry URL is chosen
// by the account.
type userDefinedRegistry struct{}

func (userDefinedRegistry) requiredFields() []Field {
	return []Field{FieldUsername, FieldPassword, FieldRegistryURL}
}

func (userDefinedRegistry) defaultRegistryURL(RegistryDefaults) (string, bool) {
	return "", false
}

func (userDefinedRegistry) normalizeUsername(supplied string) string {
	return supplied
}

func (userDefinedRegistry) validate(Credential, FieldErrors) {}

func (userDefinedRegistry) sameRegistry(storedURL, requiredURL string) bool {
	return sameCanonicalHost(storedURL, requiredURL)
}

type amazonRules struct{ userDefinedRegistry }

func (amazonRules) validate(c Credential, errs FieldErrors) {
	host, _ := ParseRegistryHost(c.RegistryURL)
	if !HostHasAnySuffix(host, AmazonRegistrySuffixes...) {
		errs.Add(FieldRegistryURL, "must be an Amazon ECR registry")
	}
}

type azureRules struct{ userDefinedRegistry }

func (azureRules) validate(c Credential, errs FieldErrors) {
	host, _ := ParseRegistryHost(c.RegistryURL)
	if !HostHasAnySuffix(host, AzureRegistrySuffixes...) {
		errs.Add(FieldRegistryURL, "must be an Azure Container Registry")
	}
}

type dockerRegistryRules struct{ userDefinedRegistry }

type dockerHubRules struct{}

func (dockerHubRules) requiredFields() []Field {
	return []Field{FieldUsername, FieldPassword}
}

func (dockerHubRules) defaultRegistryURL(defaults RegistryDefaults) (string, bool) {
	return defaults.DockerHub, true
}

func (dockerHubRules) normalizeUsername(supplied string) string {
	return supplied
}

func (dockerHubRules) validate(Credential, FieldErrors) {}

// Any Docker Hub alias is served by the same account.
func (dockerHubRules) sameRegistry(string, string) bool {
	return true
}

type googleRules struct{}

func (googleRules) requiredFields() []Field {
	return []Field{FieldPassword}
}

func (googleRules) defaultRegistryURL(defaults RegistryDefaults) (string, bool) {
	return defaults.Google, true
}

func (googleRules) normalizeUsername(string) string {
	return GoogleJSONKeyUsername
}

func (googleRules) validate(c Credential, errs FieldErrors) {
	var key map[string]any
	if err := json.Unmarshal([]byte(c.Password), &key); err != nil {
		errs.Add(FieldPassword, "must be a JSON service account key")
	}
}

// A service account key authenticates against every Google registry host.
func (googleRules) sameRegistry(_ string, requiredURL string) bool {
	host, err := ParseRegistryHost(requiredURL)
	if err != nil {
		return false
	}

	return HostHasAnySuffix(host, GoogleRegistrySuffixes...)
}

type githubContainerRegistryRules struct{}

func (githubContainerRegistryRules) requiredFields() []Field {
	return []Field{FieldUsername, FieldPassword}
}

func (githubContainerRegistryRules) defaultRegistryURL(defaults RegistryDefaults) (string, bool) {
	return defaults.GithubContainerRegistry, true
}

func (githubContainerRegistryRules) normalizeUsername(supplied string) string {
	return supplied
}

func (githubContainerRegistryRules) validate(Credential, FieldErrors) {}

func (githubContainerRegistryRules) sameRegistry(storedURL, requiredURL string) bool {
	return sameCanonicalHost(storedURL, requiredURL)
}

var (
	AmazonRegistrySuffixes    = []string{"amazonaws.com", "amazonaws.com.cn"}
	AzureRegistrySuffixes     = []string{"azurecr.io", "azurecr.cn", "azurecr.us"}
	GoogleRegistrySuffixes    = []string{"gcr.io", "pkg.dev"}
	GithubRegistrySuffixes    = []string{"ghcr.io"}
	DockerHubRegistrySuffixes = []string{"docker.io", "index.docker.io", "registry-1.docker.io"}
)

// ParseRegistryHost extracts the lower-cased host[:port] of a registry URL.
// Both "https://host/path" and bare "host[:port][/path]" forms are accepted.
func ParseRegistryHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return "", fmt.Errorf("%w: registry URL %q", ErrInvalidField, raw)
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: registry URL: %v", ErrInvalidField, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: registry URL scheme %q", ErrInvalidField, u.Scheme)
	}

	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: registry URL %q has no host", ErrInvalidField, raw)
	}

	return strings.ToLower(u.Host), nil
}

// HostHasSuffix matches host (port ignored) against a domain suffix on a
// label boundary.
func HostHasSuffix(host, suffix string) bool {
	host = stripPort(strings.ToLower(host))
	suffix = strings.ToLower(suffix)

	return host == suffix || strings.HasSuffix(host, "."+suffix)
}

func HostHasAnySuffix(host string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if HostHasSuffix(host, suffix) {
			return true
		}
	}

	return false
}

func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}

	return host
}

func sameCanonicalHost(a, b string) bool {
	hostA, err := ParseRegistryHost(a)
	if err != nil {
		return false
	}

	hostB, err := ParseRegistryHost(b)
	if err != nil {
		return false
	}

	return hostA == hostB
}
