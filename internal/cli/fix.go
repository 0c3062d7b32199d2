package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/audit"
	"github.com/vellum-notes/vellum/internal/fix"
	"github.com/vellum-notes/vellum/internal/ui"
)

var (
	fixType        string
	fixAuto        bool
	fixInteractive bool
	fixDryRun      bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Repair audit issues",
	Long: `Fix audits the vault, then repairs issues: deterministically in auto
mode, or one decision at a time in interactive mode.

Every write is re-verified by a fresh audit of the file and rolled back when
the issue survives. The exit code is 0 when nothing was left remaining or
errored, 1 otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fixAuto == fixInteractive {
			return fmt.Errorf("exactly one of --auto and --interactive is required")
		}

		vc, err := openVault(fixType)
		if err != nil {
			return err
		}

		engine := audit.New(vc.resolved, vc.owners, vc.rc, audit.Options{})
		issues := engine.Run(vc.files)
		pipeline := fix.NewPipeline(vc.resolved, engine, vc.rc, vc.files, fixDryRun)

		var summary *fix.Summary
		if fixAuto {
			summary, err = pipeline.Auto(issues)
		} else {
			var prompt fix.Prompt
			prompt, err = fix.NewTerminalPrompt()
			if err != nil {
				return err
			}
			summary, err = pipeline.Interactive(issues, prompt)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
		} else {
			ui.WriteFixSummary(os.Stdout, summary)
		}

		if !summary.Clean() {
			return validationFailed("issues remain")
		}
		return nil
	},
}

func init() {
	fixCmd.Flags().StringVar(&fixType, "type", "", "fix only this type and its descendants")
	fixCmd.Flags().BoolVar(&fixAuto, "auto", false, "apply deterministic fixes without prompting")
	fixCmd.Flags().BoolVar(&fixInteractive, "interactive", false, "confirm each fix at the terminal")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "report what would be fixed without writing")
	rootCmd.AddCommand(fixCmd)
}
