package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/distribution/reference"
	"github.com/rs/zerolog/log"
)

const (
	dockerHubDomain = "docker.io"
	libraryPrefix   = "library/"
	localhost       = "localhost"
)

type providerSuffix struct {
	suffix   string
	provider domain.CredentialType
}

// Resolver maps image references to the registry a credential is needed for.
type Resolver struct {
	dockerHubURL string
	suffixes     []providerSuffix
}

type ResolverDependencies struct {
	Defaults domain.RegistryDefaults
}

func NewResolver(deps ResolverDependencies) *Resolver {
	var suffixes []providerSuffix

	add := func(provider domain.CredentialType, values []string) {
		for _, value := range values {
			suffixes = append(suffixes, providerSuffix{suffix: value, provider: provider})
		}
	}

	add(domain.CredentialTypeAmazon, domain.AmazonRegistrySuffixes)
	add(domain.CredentialTypeAzure, domain.AzureRegistrySuffixes)
	add(domain.CredentialTypeGithubContainerRegistry, domain.GithubRegistrySuffixes)
	add(domain.CredentialTypeGoogle, domain.GoogleRegistrySuffixes)
	add(domain.CredentialTypeDockerHub, domain.DockerHubRegistrySuffixes)

	// Longest suffix first so the most specific provider wins.
	sort.SliceStable(suffixes, func(i, j int) bool {
		return len(suffixes[i].suffix) > len(suffixes[j].suffix)
	})

	return &Resolver{
		dockerHubURL: deps.Defaults.DockerHub,
		suffixes:     suffixes,
	}
}

// Resolve splits a raw image string into its registry coordinates.
func (r *Resolver) Resolve(raw string) (domain.ImageReference, error) {
	raw = strings.TrimSpace(raw)

	named, err := reference.ParseNormalizedNamed(raw)
	if err != nil {
		return domain.ImageReference{}, fmt.Errorf("%w %q: %v", domain.ErrInvalidImageReference, raw, err)
	}

	ref := domain.ImageReference{Raw: raw}

	if hasExplicitHost(raw) {
		ref.RegistryHost = strings.ToLower(reference.Domain(named))
	}

	path := reference.Path(named)
	if reference.Domain(named) == dockerHubDomain && !strings.Contains(raw, libraryPrefix) {
		path = strings.TrimPrefix(path, libraryPrefix)
	}

	if i := strings.LastIndex(path, "/"); i >= 0 {
		ref.Namespace = path[:i]
		ref.Repository = path[i+1:]
	} else {
		ref.Repository = path
	}

	if tagged, ok := named.(reference.Tagged); ok {
		ref.Tag = tagged.Tag()
	}

	if digested, ok := named.(reference.Digested); ok {
		ref.Digest = digested.Digest().String()
	}

	if ref.Tag == "" && ref.Digest == "" {
		ref.Tag = domain.DefaultImageTag
	}

	return ref, nil
}

// hasExplicitHost applies the registry-host rule on the raw string: the first
// path segment names a host only when it looks like one.
func hasExplicitHost(raw string) bool {
	i := strings.Index(raw, "/")
	if i < 0 {
		return false
	}

	first := raw[:i]

	return strings.ContainsAny(first, ".:") || first == localhost
}

func (r *Resolver) RequirementFor(ref domain.ImageReference) domain.RegistryRequirement {
	if !ref.HasExplicitHost() {
		return r.dockerHubRequirement()
	}

	host := strings.ToLower(ref.RegistryHost)

	for _, candidate := range r.suffixes {
		if !domain.HostHasSuffix(host, candidate.suffix) {
			continue
		}

		if candidate.provider == domain.CredentialTypeDockerHub {
			return r.dockerHubRequirement()
		}

		return domain.RegistryRequirement{
			Provider:    candidate.provider,
			RegistryURL: host,
		}
	}

	return domain.RegistryRequirement{
		Provider:    domain.CredentialTypeDockerRegistry,
		RegistryURL: host,
	}
}

func (r *Resolver) dockerHubRequirement() domain.RegistryRequirement {
	return domain.RegistryRequirement{
		Provider:    domain.CredentialTypeDockerHub,
		RegistryURL: r.dockerHubURL,
	}
}

// Requirements resolves every service image and merges requirements that a
// single credential would satisfy. The first invalid image aborts with a
// malformed descriptor error naming its service.
func (r *Resolver) Requirements(images []domain.ServiceImage) ([]domain.ServiceRequirement, error) {
	requirements := []domain.ServiceRequirement{}
	index := map[string]int{}

	for _, image := range images {
		ref, err := r.Resolve(image.Image)
		if err != nil {
			return nil, &domain.MalformedDescriptorError{
				Service: image.Service,
				Reason:  "has an invalid image reference",
				Err:     err,
			}
		}

		requirement := r.RequirementFor(ref)

		log.Debug().
			Str("service", image.Service).
			Str("image", image.Image).
			Str("provider", requirement.Provider.String()).
			Str("registry_url", requirement.RegistryURL).
			Msg("Resolved image registry")

		key := requirement.Key()
		if i, ok := index[key]; ok {
			requirements[i].Services = appendUnique(requirements[i].Services, image.Service)
			continue
		}

		index[key] = len(requirements)
		requirements = append(requirements, domain.ServiceRequirement{
			RegistryRequirement: requirement,
			Services:            []string{image.Service},
		})
	}

	return requirements, nil
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}

	return append(values, value)
}
