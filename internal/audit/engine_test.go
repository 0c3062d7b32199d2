package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/ownership"
	"github.com/vellum-notes/vellum/internal/scan"
	"github.com/vellum-notes/vellum/internal/schema"
)

func testDocument() *schema.Document {
	return &schema.Document{
		Enums: map[string][]string{
			"status": {"todo", "doing", "done"},
		},
		Types: map[string]*schema.RawType{
			"objective": {},
			"task": {
				Extends: "objective",
				Fields: map[string]*schema.RawField{
					"status": {Kind: schema.KindSelect, Enum: "status", Required: true, Default: "todo"},
					"title":  {Kind: schema.KindPlainInput, Required: true},
					"blocks": {Kind: schema.KindDynamic, SourceTypes: []string{"task"}, Multiple: true},
				},
				BodySections: []string{"Notes"},
			},
			"area": {Recursive: true},
			"draft": {Fields: map[string]*schema.RawField{
				"research": {Kind: schema.KindDynamic, SourceTypes: []string{"research"}, Multiple: true, Owned: true},
			}},
			"research": {},
		},
	}
}

type fixture struct {
	vault    string
	resolved *schema.Resolved
	rc       config.RunConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	resolved, err := schema.Resolve(testDocument())
	if err != nil {
		t.Fatal(err)
	}
	vault := t.TempDir()
	rc := config.NewRunConfig(nil, nil, config.RunOptions{VaultPath: vault}, func(string) string { return "" })
	return &fixture{vault: vault, resolved: resolved, rc: rc}
}

func (fx *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	full := filepath.Join(fx.vault, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (fx *fixture) run(t *testing.T, opts Options) []Issue {
	t.Helper()
	owners, err := ownership.Build(fx.resolved, fx.vault)
	if err != nil {
		t.Fatal(err)
	}
	files, err := scan.New(fx.resolved, fx.rc, nil).All()
	if err != nil {
		t.Fatal(err)
	}
	return New(fx.resolved, owners, fx.rc, opts).Run(files)
}

func codes(issues []Issue) []IssueCode {
	var out []IssueCode
	for _, issue := range issues {
		out = append(out, issue.Code)
	}
	return out
}

func findIssue(issues []Issue, code IssueCode) (Issue, bool) {
	for _, issue := range issues {
		if issue.Code == code {
			return issue, true
		}
	}
	return Issue{}, false
}

func TestRunCleanVault(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: First\nstatus: todo\n---\n\n## Notes\n")
	issues := fx.run(t, Options{})
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
}

func TestParseErrorIsolatesFile(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: [unclosed\n")
	issues := fx.run(t, Options{})
	if len(issues) != 1 || issues[0].Code != CodeParseError {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Severity != SeverityError {
		t.Errorf("severity = %v", issues[0].Severity)
	}
}

func TestOrphanAndInvalidType(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/o1.md", "no frontmatter here\n")
	fx.write(t, "objectives/o2.md", "---\ntype: epic\n---\n")
	issues := fx.run(t, Options{})

	orphan, ok := findIssue(issues, CodeOrphanFile)
	if !ok || orphan.File != "objectives/o1.md" || orphan.Severity != SeverityWarning {
		t.Errorf("orphan = %+v ok=%v", orphan, ok)
	}
	invalid, ok := findIssue(issues, CodeInvalidType)
	if !ok || invalid.File != "objectives/o2.md" || invalid.Severity != SeverityError {
		t.Errorf("invalid = %+v ok=%v", invalid, ok)
	}
}

func TestMissingRequiredSeverityDependsOnDefault(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\n---\n\n## Notes\n")
	issues := fx.run(t, Options{OnlyIssue: CodeMissingRequired})
	if len(issues) != 2 {
		t.Fatalf("issues = %v", issues)
	}

	byField := map[string]Issue{}
	for _, issue := range issues {
		byField[issue.Field] = issue
	}
	// status has a schema default, so it is repairable and only warns.
	if got := byField["status"]; got.Severity != SeverityWarning || got.Suggestion != "todo" {
		t.Errorf("status issue = %+v", got)
	}
	// title has no default and must be an error.
	if got := byField["title"]; got.Severity != SeverityError || got.Suggestion != "" {
		t.Errorf("title issue = %+v", got)
	}
}

func TestInvalidOptionSuggestsUniqueNearMatch(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: T\nstatus: dome\n---\n\n## Notes\n")
	issues := fx.run(t, Options{OnlyIssue: CodeInvalidOption})
	if len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
	// "done" is the only option within two edits of "dome".
	if issues[0].Suggestion != "done" {
		t.Errorf("suggestion = %q", issues[0].Suggestion)
	}
}

func TestInvalidOptionNoSuggestionWhenAmbiguous(t *testing.T) {
	got, ok := suggestOption("dong", []string{"done", "doing"}, 2)
	if ok {
		t.Errorf("expected no suggestion, got %q", got)
	}
	got, ok = suggestOption("tdoo", []string{"todo", "doing", "done"}, 2)
	if !ok || got != "todo" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestInvalidOptionNonStringValue(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: T\nstatus: 5\n---\n\n## Notes\n")
	fx.write(t, "objectives/tasks/t2.md", "---\ntype: task\ntitle: U\nstatus: true\n---\n\n## Notes\n")
	issues := fx.run(t, Options{OnlyIssue: CodeInvalidOption})
	if len(issues) != 2 {
		t.Fatalf("issues = %v", issues)
	}
	for _, issue := range issues {
		if issue.Severity != SeverityError || issue.Field != "status" {
			t.Errorf("issue = %+v", issue)
		}
		// No enum value is near a non-string, so nothing to suggest.
		if issue.Suggestion != "" {
			t.Errorf("suggestion = %q", issue.Suggestion)
		}
	}
}

func TestUnknownFieldSeverity(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: T\nstatus: todo\ncolor: red\n---\n\n## Notes\n")

	issues := fx.run(t, Options{OnlyIssue: CodeUnknownField})
	if len(issues) != 1 || issues[0].Severity != SeverityWarning || issues[0].Field != "color" {
		t.Fatalf("issues = %v", issues)
	}

	issues = fx.run(t, Options{OnlyIssue: CodeUnknownField, Strict: true})
	if len(issues) != 1 || issues[0].Severity != SeverityError {
		t.Fatalf("strict issues = %v", issues)
	}
}

func TestUnknownFieldAllowedByConfig(t *testing.T) {
	fx := newFixture(t)
	fx.rc.AllowedExtraFields = []string{"color"}
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: T\nstatus: todo\ncolor: red\n---\n\n## Notes\n")
	issues := fx.run(t, Options{OnlyIssue: CodeUnknownField})
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
}

func TestFormatViolationSuggestsWikilink(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: T\nstatus: todo\nblocks:\n  - t2\n---\n\n## Notes\n")
	fx.write(t, "objectives/tasks/t2.md", "---\ntype: task\ntitle: U\nstatus: todo\n---\n\n## Notes\n")
	issues := fx.run(t, Options{OnlyIssue: CodeFormatViolation})
	if len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Suggestion != "[[t2]]" {
		t.Errorf("suggestion = %q", issues[0].Suggestion)
	}
}

func TestFormatViolationNonStringValue(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "areas/a.md", "---\ntype: area\nparent: 7\n---\n")
	issues := fx.run(t, Options{OnlyIssue: CodeFormatViolation})
	if len(issues) != 1 || issues[0].Severity != SeverityError {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Suggestion != "" {
		t.Errorf("suggestion = %q", issues[0].Suggestion)
	}
}

func TestWrongDirectory(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "misc/t1.md", "---\ntype: task\ntitle: T\nstatus: todo\n---\n\n## Notes\n")
	issues := fx.run(t, Options{OnlyIssue: CodeWrongDirectory})
	if len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Extra["expected_dir"] != "objectives/tasks" {
		t.Errorf("extra = %v", issues[0].Extra)
	}
}

func TestOwnedFileInPlaceHasNoDirectoryIssue(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "drafts/d1/d1.md", "---\ntype: draft\n---\n")
	fx.write(t, "drafts/d1/research/r1.md", "---\ntype: research\n---\n")
	issues := fx.run(t, Options{})
	for _, code := range []IssueCode{CodeWrongDirectory, CodeOwnedWrongLocation} {
		if issue, ok := findIssue(issues, code); ok {
			t.Errorf("unexpected %s: %+v", code, issue)
		}
	}
}

func TestOwnedWrongLocation(t *testing.T) {
	fx := newFixture(t)
	// A research folder without an owner instance document above it leaves
	// the note unclaimed.
	fx.write(t, "drafts/d1/research/r1.md", "---\ntype: research\n---\n")
	issues := fx.run(t, Options{})
	issue, ok := findIssue(issues, CodeOwnedWrongLocation)
	if !ok || issue.File != "drafts/d1/research/r1.md" {
		t.Errorf("issues = %v", codes(issues))
	}
}

func TestStaleAmbiguousAndSelfReferences(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: T\nstatus: todo\nblocks:\n  - \"[[gone]]\"\n  - \"[[t1]]\"\n  - \"[[dup]]\"\n---\n\n## Notes\n")
	fx.write(t, "objectives/tasks/a/dup.md", "---\ntype: task\ntitle: A\nstatus: todo\n---\n\n## Notes\n")
	fx.write(t, "objectives/tasks/b/dup.md", "---\ntype: task\ntitle: B\nstatus: todo\n---\n\n## Notes\n")
	issues := fx.run(t, Options{})

	if issue, ok := findIssue(issues, CodeStaleReference); !ok || issue.File != "objectives/tasks/t1.md" {
		t.Errorf("stale missing: %v", codes(issues))
	}
	if issue, ok := findIssue(issues, CodeSelfReference); !ok || issue.Severity != SeverityWarning {
		t.Errorf("self missing: %+v", issue)
	}
	amb, ok := findIssue(issues, CodeAmbiguousLinkTarget)
	if !ok {
		t.Fatalf("ambiguous missing: %v", codes(issues))
	}
	cands, _ := amb.Extra["candidates"].([]string)
	want := []string{"objectives/tasks/a/dup.md", "objectives/tasks/b/dup.md"}
	if len(cands) != 2 || cands[0] != want[0] || cands[1] != want[1] {
		t.Errorf("candidates = %v", cands)
	}
}

func TestOwnedNoteReferencedFromOutside(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "drafts/d1/d1.md", "---\ntype: draft\nresearch:\n  - \"[[drafts/d1/research/r1]]\"\n---\n")
	fx.write(t, "drafts/d1/research/r1.md", "---\ntype: research\n---\n")
	fx.write(t, "drafts/d2/d2.md", "---\ntype: draft\nresearch:\n  - \"[[drafts/d1/research/r1]]\"\n---\n")
	issues := fx.run(t, Options{OnlyIssue: CodeOwnedNoteReferenced})
	if len(issues) != 1 || issues[0].File != "drafts/d2/d2.md" {
		t.Fatalf("issues = %v", issues)
	}
}

func TestParentCycleReportedOnce(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "areas/a.md", "---\ntype: area\nparent: \"[[b]]\"\n---\n")
	fx.write(t, "areas/b.md", "---\ntype: area\nparent: \"[[c]]\"\n---\n")
	fx.write(t, "areas/c.md", "---\ntype: area\nparent: \"[[a]]\"\n---\n")
	fx.write(t, "areas/d.md", "---\ntype: area\nparent: \"[[a]]\"\n---\n")
	issues := fx.run(t, Options{OnlyIssue: CodeParentCycle})
	if len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].File != "areas/a.md" {
		t.Errorf("anchor = %q", issues[0].File)
	}
	cycle, _ := issues[0].Extra["cycle"].([]string)
	if len(cycle) != 3 || cycle[0] != "areas/a.md" {
		t.Errorf("cycle = %v", cycle)
	}
}

func TestParentFieldOnNonRecursiveTypeSkipsCycleWalk(t *testing.T) {
	doc := &schema.Document{
		Types: map[string]*schema.RawType{
			"note": {Fields: map[string]*schema.RawField{
				"parent": {Kind: schema.KindDynamic, SourceTypes: []string{"note"}},
			}},
		},
	}
	resolved, err := schema.Resolve(doc)
	if err != nil {
		t.Fatal(err)
	}
	vault := t.TempDir()
	rc := config.NewRunConfig(nil, nil, config.RunOptions{VaultPath: vault}, func(string) string { return "" })
	fx := &fixture{vault: vault, resolved: resolved, rc: rc}

	fx.write(t, "notes/a.md", "---\ntype: note\nparent: \"[[b]]\"\n---\n")
	fx.write(t, "notes/b.md", "---\ntype: note\nparent: \"[[a]]\"\n---\n")
	issues := fx.run(t, Options{OnlyIssue: CodeParentCycle})
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
}

func TestHygieneIssues(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/o1.md", "# Heading first\n\n---\ntype: objective\n---\n")
	fx.write(t, "objectives/o2.md", "---\ntype: objective\n---\n\nSee [broken]] and fine [[ok]].\n")
	fx.write(t, "objectives/ok.md", "---\ntype: objective\n---\n")
	issues := fx.run(t, Options{})

	if _, ok := findIssue(issues, CodeFrontmatterNotAtTop); !ok {
		t.Errorf("misplaced frontmatter missing: %v", codes(issues))
	}
	link, ok := findIssue(issues, CodeMalformedWikilink)
	if !ok {
		t.Fatalf("malformed link missing: %v", codes(issues))
	}
	if link.Suggestion != "[[broken]]" {
		t.Errorf("suggestion = %q", link.Suggestion)
	}
}

func TestMissingSection(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/tasks/t1.md", "---\ntype: task\ntitle: T\nstatus: todo\n---\n\nBody with no headings.\n")
	issues := fx.run(t, Options{OnlyIssue: CodeMissingSection})
	if len(issues) != 1 || issues[0].Severity != SeverityWarning {
		t.Fatalf("issues = %v", issues)
	}
}

func TestIgnoreFilter(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/o1.md", "no frontmatter\n")
	issues := fx.run(t, Options{IgnoreIssue: CodeOrphanFile})
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
}

func TestRunFileFiltersToOneFile(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "objectives/o1.md", "no frontmatter\n")
	fx.write(t, "objectives/o2.md", "also none\n")

	owners, err := ownership.Build(fx.resolved, fx.vault)
	if err != nil {
		t.Fatal(err)
	}
	files, err := scan.New(fx.resolved, fx.rc, nil).All()
	if err != nil {
		t.Fatal(err)
	}
	e := New(fx.resolved, owners, fx.rc, Options{})
	issues := e.RunFile("objectives/o2.md", files)
	if len(issues) != 1 || issues[0].File != "objectives/o2.md" {
		t.Errorf("issues = %v", issues)
	}
}

func TestSummarize(t *testing.T) {
	issues := []Issue{
		{Code: CodeOrphanFile, Severity: SeverityWarning, File: "a.md"},
		{Code: CodeStaleReference, Severity: SeverityError, File: "a.md"},
		{Code: CodeStaleReference, Severity: SeverityError, File: "b.md"},
	}
	s := Summarize(issues)
	if s.Total != 3 || s.Errors != 2 || s.Warnings != 1 || s.Files != 2 {
		t.Errorf("summary = %+v", s)
	}
	if s.ByCode[CodeStaleReference] != 2 {
		t.Errorf("by code = %v", s.ByCode)
	}
}
