package compose

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/compose-spec/compose-go/v2/template"
	"gopkg.in/yaml.v3"
)

const (
	servicesKey  = "services"
	imageKey     = "image"
	mergeKey     = "<<"
	versionKey   = "version"
	extensionKey = "x-"
)

// Parser turns a compose descriptor into the ordered list of service images.
// It does not look at registries.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(descriptor domain.ComposeDescriptor) ([]domain.ServiceImage, error) {
	content, err := decodeContent(descriptor)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(string(content)) == "" {
		return nil, malformed("", "descriptor is empty", nil)
	}

	var document yaml.Node
	if err := yaml.Unmarshal(content, &document); err != nil {
		return nil, malformed("", "is not valid YAML", err)
	}

	root := resolveAlias(&document)
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, malformed("", "descriptor is empty", nil)
		}

		root = resolveAlias(root.Content[0])
	}

	if root.Kind != yaml.MappingNode {
		return nil, malformed("", "top level must be a mapping", nil)
	}

	services, err := serviceEntries(root)
	if err != nil {
		return nil, err
	}

	if len(services) == 0 {
		return nil, malformed("", "declares no services", nil)
	}

	lookup := envLookup(descriptor.Env)
	images := make([]domain.ServiceImage, 0, len(services))

	for _, service := range services {
		image, err := serviceImage(service.name, service.node, lookup)
		if err != nil {
			return nil, err
		}

		images = append(images, domain.ServiceImage{
			Service: service.name,
			Image:   image,
		})
	}

	return images, nil
}

type serviceEntry struct {
	name string
	node *yaml.Node
}

func serviceEntries(root *yaml.Node) ([]serviceEntry, error) {
	if servicesNode, ok := mappingValue(root, servicesKey); ok {
		servicesNode = resolveAlias(servicesNode)

		if isNull(servicesNode) {
			return nil, nil
		}

		if servicesNode.Kind != yaml.MappingNode {
			return nil, malformed("", "services must be a mapping", nil)
		}

		return mappingEntries(servicesNode, false), nil
	}

	// Legacy layout: services are declared at the top level.
	return mappingEntries(root, true), nil
}

func mappingEntries(node *yaml.Node, legacy bool) []serviceEntry {
	entries := make([]serviceEntry, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		if strings.HasPrefix(name, extensionKey) || name == mergeKey {
			continue
		}

		if legacy && name == versionKey {
			continue
		}

		entries = append(entries, serviceEntry{
			name: name,
			node: node.Content[i+1],
		})
	}

	return entries
}

func serviceImage(name string, node *yaml.Node, lookup template.Mapping) (string, error) {
	node = resolveAlias(node)
	if node.Kind != yaml.MappingNode {
		return "", malformed(name, "must be a mapping", nil)
	}

	imageNode, ok := mappingValue(node, imageKey)
	if !ok {
		return "", malformed(name, "has no image", nil)
	}

	imageNode = resolveAlias(imageNode)
	if imageNode.Kind != yaml.ScalarNode || isNull(imageNode) {
		return "", malformed(name, "image must be a string", nil)
	}

	raw := strings.TrimSpace(imageNode.Value)
	if raw == "" {
		return "", malformed(name, "has an empty image", nil)
	}

	image, err := template.Substitute(raw, lookup)
	if err != nil {
		return "", malformed(name, "image interpolation failed", err)
	}

	image = strings.TrimSpace(image)
	if image == "" {
		return "", malformed(name, "has an empty image after interpolation", nil)
	}

	return image, nil
}

// mappingValue finds key in node, following "<<" merge keys when the key is
// not declared directly.
func mappingValue(node *yaml.Node, key string) (*yaml.Node, bool) {
	var merges []*yaml.Node

	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]

		if k.Value == key {
			return v, true
		}

		if k.Value == mergeKey {
			merges = append(merges, v)
		}
	}

	for _, merge := range merges {
		merge = resolveAlias(merge)

		candidates := []*yaml.Node{merge}
		if merge.Kind == yaml.SequenceNode {
			candidates = merge.Content
		}

		for _, candidate := range candidates {
			candidate = resolveAlias(candidate)
			if candidate.Kind != yaml.MappingNode {
				continue
			}

			if v, ok := mappingValue(candidate, key); ok {
				return v, true
			}
		}
	}

	return nil, false
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	return node
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func envLookup(env map[string]string) template.Mapping {
	return func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}
}

func decodeContent(descriptor domain.ComposeDescriptor) ([]byte, error) {
	switch descriptor.Encoding {
	case "", domain.DescriptorEncodingPlain:
		return []byte(descriptor.Content), nil
	case domain.DescriptorEncodingBase64:
		return decodeBase64(descriptor.Content)
	default:
		return nil, malformed("", fmt.Sprintf("unsupported encoding %q", descriptor.Encoding), nil)
	}
}

// decodeBase64 tolerates line breaks and missing padding.
func decodeBase64(content string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		default:
			return r
		}
	}, content)

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err == nil {
		return decoded, nil
	}

	decoded, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
	if rawErr == nil {
		return decoded, nil
	}

	return nil, malformed("", "content is not valid base64", errors.Join(err, rawErr))
}

func malformed(service, reason string, err error) error {
	return &domain.MalformedDescriptorError{
		Service: service,
		Reason:  reason,
		Err:     err,
	}
}
