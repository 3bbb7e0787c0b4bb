package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flowbaker/regcheck/internal/domain"
	"github.com/flowbaker/regcheck/internal/initialization"

	"github.com/spf13/cobra"
)

type requirementsOutput struct {
	Provider    string   `json:"provider" yaml:"provider"`
	RegistryURL string   `json:"registry_url" yaml:"registry_url"`
	Services    []string `json:"services" yaml:"services"`
}

func NewRequirementsCommand(opts *rootOptions) *cobra.Command {
	var (
		encoding string
		output   string
		env      []string
		osEnv    bool
	)

	cmd := &cobra.Command{
		Use:   "requirements <compose-file>",
		Short: "List the registry credentials a compose file needs",
		Long: `Parse a compose file offline and print, per registry, the credential type
an account needs and the services that pull from it. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readDescriptor(cmd, args[0])
			if err != nil {
				return err
			}

			variables, err := descriptorEnv(env, osEnv)
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			container := initialization.NewResolutionContainer(cfg)

			images, err := container.Parser.Parse(domain.ComposeDescriptor{
				Content:  content,
				Encoding: domain.DescriptorEncoding(encoding),
				Path:     args[0],
				Env:      variables,
			})
			if err != nil {
				return err
			}

			requirements, err := container.Resolver.Requirements(images)
			if err != nil {
				return err
			}

			rows := make([]requirementsOutput, 0, len(requirements))
			for _, requirement := range requirements {
				rows = append(rows, requirementsOutput{
					Provider:    requirement.Provider.String(),
					RegistryURL: requirement.RegistryURL,
					Services:    requirement.Services,
				})
			}

			return printOutput(cmd, rows, output)
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", string(domain.DescriptorEncodingPlain), "Content encoding: plain or base64")
	cmd.Flags().StringVarP(&output, "output", "o", outputYAML, "Output format: yaml or json")
	cmd.Flags().StringArrayVarP(&env, "env", "e", nil, "Interpolation variable as KEY=VALUE, repeatable")
	cmd.Flags().BoolVar(&osEnv, "os-env", false, "Also interpolate from the process environment")

	return cmd
}

func readDescriptor(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}

		return string(content), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read compose file: %w", err)
	}

	return string(content), nil
}

// descriptorEnv merges --env pairs over the process environment when osEnv
// is set.
func descriptorEnv(pairs []string, osEnv bool) (map[string]string, error) {
	variables := map[string]string{}

	if osEnv {
		for _, entry := range os.Environ() {
			if key, value, ok := strings.Cut(entry, "="); ok {
				variables[key] = value
			}
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", pair)
		}

		variables[key] = value
	}

	return variables, nil
}
