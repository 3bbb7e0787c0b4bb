package cli

import (
	"fmt"

	"github.com/flowbaker/regcheck/internal/initialization"

	"github.com/spf13/cobra"
)

func NewKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate keys for configuration",
	}

	cmd.AddCommand(newMasterKeyCommand())
	cmd.AddCommand(newSigningKeyCommand())

	return cmd
}

func newMasterKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "master",
		Short: "Generate a value for REGCHECK_MASTER_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := initialization.GenerateMasterKey()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}

func newSigningKeyCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "signing <account-id>",
		Short: "Generate an Ed25519 request signing pair for an account",
		Long: `Generate an Ed25519 pair. Add public_key under auth.account_keys for the
account and hand private_key to the client that signs its requests.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := initialization.GenerateSigningKeyPair(args[0])
			if err != nil {
				return err
			}

			return printOutput(cmd, pair, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputYAML, "Output format: yaml or json")

	return cmd
}
