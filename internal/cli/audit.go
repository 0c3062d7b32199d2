package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/audit"
	"github.com/vellum-notes/vellum/internal/ui"
)

var (
	auditType   string
	auditStrict bool
	auditOnly   string
	auditIgnore string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Validate the vault against the schema",
	Long: `Audit scans the vault and reports every deviation from the schema as a
typed issue, grouped by file.

The exit code is 0 when no error-severity issues were found, 1 otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := auditOptions()
		if err != nil {
			return err
		}

		vc, err := openVault(auditType)
		if err != nil {
			return err
		}

		engine := audit.New(vc.resolved, vc.owners, vc.rc, opts)
		// The listing honors --only/--ignore; the summary and the exit code
		// reflect the unfiltered run.
		all := engine.RunAll(vc.files)
		issues := engine.Filter(all)
		summary := audit.Summarize(all)

		if jsonOutput {
			out := struct {
				Issues  []audit.Issue `json:"issues"`
				Summary audit.Summary `json:"summary"`
			}{Issues: issues, Summary: summary}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
		} else {
			ui.WriteAuditReport(os.Stdout, issues, summary)
		}

		if summary.Errors > 0 {
			return validationFailed("validation issues found")
		}
		return nil
	},
}

// auditOptions validates the --only/--ignore codes against the known set.
func auditOptions() (audit.Options, error) {
	opts := audit.Options{Strict: auditStrict}
	if auditOnly != "" {
		code, err := knownCode(auditOnly)
		if err != nil {
			return opts, err
		}
		opts.OnlyIssue = code
	}
	if auditIgnore != "" {
		code, err := knownCode(auditIgnore)
		if err != nil {
			return opts, err
		}
		opts.IgnoreIssue = code
	}
	return opts, nil
}

func knownCode(name string) (audit.IssueCode, error) {
	for _, code := range audit.KnownCodes() {
		if string(code) == name {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown issue code %q", name)
}

func init() {
	auditCmd.Flags().StringVar(&auditType, "type", "", "audit only this type and its descendants")
	auditCmd.Flags().BoolVar(&auditStrict, "strict", false, "treat unknown fields as errors")
	auditCmd.Flags().StringVar(&auditOnly, "only", "", "report only this issue code")
	auditCmd.Flags().StringVar(&auditIgnore, "ignore", "", "suppress this issue code")
	auditCmd.Flags().StringArrayVar(&allowFields, "allow-field", nil, "allow this unknown frontmatter field")
	rootCmd.AddCommand(auditCmd)
}
