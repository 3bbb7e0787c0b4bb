package cli

import (
	"fmt"
	"os"

	"github.com/flowbaker/regcheck/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	debug      bool
	configFile string
}

// loadConfig reads configuration for commands that need it. Validation is
// left to the commands that talk to external services.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configFile)
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "regcheck",
		Short: "Registry credential service",
		Long: `regcheck stores container registry credentials per account and checks
that a compose file only references registries the account can pull from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if opts.debug {
				level = zerolog.DebugLevel
			}

			zerolog.SetGlobalLevel(level)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a config file (default ./regcheck.yaml)")

	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewRequirementsCommand(opts))
	rootCmd.AddCommand(NewKeysCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
