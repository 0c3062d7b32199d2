// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/ui"
)

// EnvVaultVar selects the vault root when --vault is absent.
const EnvVaultVar = "VLM_VAULT"

var (
	// Global flags
	vaultFlag   string
	configFlag  string
	jsonOutput  bool
	allowFields []string

	// Resolved values
	resolvedVaultPath string
	cfg               *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vlm",
	Short: "Vellum - schema-driven vault audit and repair",
	Long: `Vellum keeps a vault of frontmatter-bearing markdown notes consistent
with a user-defined, inheritable type schema.

It resolves the schema into a type graph, scans the vault, classifies every
deviation into a typed issue, and repairs the deterministic ones.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that never touch a vault skip resolution.
		switch cmd.Name() {
		case "version", "docs", "completion", "help":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "completion" {
			return nil
		}

		var err error
		if configFlag != "" {
			cfg, err = config.LoadFrom(configFlag)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Vault resolution: flag > environment > config default.
		switch {
		case vaultFlag != "":
			resolvedVaultPath = vaultFlag
		case os.Getenv(EnvVaultVar) != "":
			resolvedVaultPath = os.Getenv(EnvVaultVar)
		case cfg.Vault != "":
			resolvedVaultPath = cfg.Vault
		default:
			return fmt.Errorf(`no vault specified

Either:
  1. Use --vault /path/to/vault
  2. Set %s in the environment
  3. Set vault in ~/.config/vellum/config.toml`, EnvVaultVar)
		}

		if _, err := os.Stat(resolvedVaultPath); os.IsNotExist(err) {
			return fmt.Errorf("vault not found: %s", resolvedVaultPath)
		}
		return nil
	},
}

// Execute runs the CLI and reports errors on stderr. The caller decides the
// process exit code via ExitCode.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !quiet(err) {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "vault root directory")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
}
