package ui

import (
	"fmt"
	"io"

	"github.com/vellum-notes/vellum/internal/audit"
	"github.com/vellum-notes/vellum/internal/fix"
)

// WriteAuditReport renders issues grouped by file, each line carrying a
// severity symbol, the issue code, and the message. The summary line comes
// from s, which may count more than the listed issues when a filter is
// active.
func WriteAuditReport(w io.Writer, issues []audit.Issue, s audit.Summary) {
	if s.Total == 0 {
		fmt.Fprintln(w, Success("no issues found"))
		return
	}

	var current string
	for _, issue := range issues {
		if issue.File != current {
			if current != "" {
				fmt.Fprintln(w)
			}
			current = issue.File
			fmt.Fprintln(w, FilePath(issue.File))
		}
		line := Errorf("%s %s", Accent.Render(string(issue.Code)), issue.Message)
		if issue.Severity == audit.SeverityWarning {
			line = Warningf("%s %s", Accent.Render(string(issue.Code)), issue.Message)
		}
		fmt.Fprintf(w, "  %s\n", line)
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "    %s\n", Hint("suggestion: "+issue.Suggestion))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d %s in %d %s %s\n",
		s.Total, pluralize("issue", s.Total),
		s.Files, pluralize("file", s.Files),
		ErrorWarningCounts(s.Errors, s.Warnings))
}

// WriteFixSummary renders the outcome of a repair run.
func WriteFixSummary(w io.Writer, summary *fix.Summary) {
	for _, r := range summary.Results {
		var line string
		switch r.Status {
		case fix.StatusFixed:
			line = Successf("%s: %s", r.Issue.File, r.Issue.Code)
		case fix.StatusErrored:
			line = Errorf("%s: %s (%v)", r.Issue.File, r.Issue.Code, r.Err)
		case fix.StatusSkipped:
			line = Hint(fmt.Sprintf("- %s: %s (skipped)", r.Issue.File, r.Issue.Code))
		default:
			line = Hint(fmt.Sprintf("- %s: %s (remaining)", r.Issue.File, r.Issue.Code))
		}
		fmt.Fprintln(w, line)
	}

	if len(summary.Results) > 0 {
		fmt.Fprintln(w)
	}
	label := "fixed"
	if summary.DryRun {
		label = "would fix"
	}
	fmt.Fprintf(w, "%s %d, skipped %d, remaining %d, errored %d\n",
		label, summary.Counts.Fixed, summary.Counts.Skipped,
		summary.Counts.Remaining, summary.Counts.Errored)
	if summary.Aborted {
		fmt.Fprintln(w, Info("aborted; committed fixes were kept"))
	}
}
