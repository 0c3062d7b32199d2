package fix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vellum-notes/vellum/internal/audit"
	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/ownership"
	"github.com/vellum-notes/vellum/internal/scan"
	"github.com/vellum-notes/vellum/internal/schema"
)

func testDocument() *schema.Document {
	return &schema.Document{
		Enums: map[string][]string{
			"status": {"raw", "active"},
		},
		Types: map[string]*schema.RawType{
			"idea": {
				Fields: map[string]*schema.RawField{
					"status": {Kind: schema.KindSelect, Enum: "status", Required: true},
					"effort": {Kind: schema.KindPlainInput, Required: true, Default: "medium"},
					"link":   {Kind: schema.KindPlainInput, Format: schema.FormatWikilink},
				},
				FieldOrder: []string{"status", "effort", "link"},
			},
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

func (fx *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fx.vault, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func (fx *fixture) pipeline(t *testing.T, dryRun bool) (*Pipeline, []audit.Issue) {
	t.Helper()
	owners, err := ownership.Build(fx.resolved, fx.vault)
	if err != nil {
		t.Fatal(err)
	}
	files, err := scan.New(fx.resolved, fx.rc, nil).All()
	if err != nil {
		t.Fatal(err)
	}
	engine := audit.New(fx.resolved, owners, fx.rc, audit.Options{})
	issues := engine.Run(files)
	return NewPipeline(fx.resolved, engine, fx.rc, files, dryRun), issues
}

func TestAutoFixInvalidOption(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "ideas/i1.md", "---\ntype: idea\nstatus: rae\neffort: high\n---\n")

	p, issues := fx.pipeline(t, false)
	if len(issues) != 1 || issues[0].Code != audit.CodeInvalidOption {
		t.Fatalf("issues = %v", issues)
	}
	if issues[0].Suggestion != "raw" {
		t.Fatalf("suggestion = %q", issues[0].Suggestion)
	}

	summary, err := p.Auto(issues)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Counts.Fixed != 1 || summary.Counts.Remaining != 0 {
		t.Errorf("summary = %+v", summary.Counts)
	}

	_, after := fx.pipeline(t, false)
	if len(after) != 0 {
		t.Errorf("re-audit = %v", after)
	}
	content := fx.read(t, "ideas/i1.md")
	if content != "---\ntype: idea\nstatus: raw\neffort: high\n---\n" {
		t.Errorf("content = %q", content)
	}
}

func TestAutoFixMissingRequiredDefault(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "ideas/i1.md", "---\ntype: idea\nstatus: raw\n---\n\nbody\n")

	p, issues := fx.pipeline(t, false)
	summary, err := p.Auto(issues)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Counts.Fixed != 1 {
		t.Fatalf("summary = %+v", summary.Counts)
	}

	content := fx.read(t, "ideas/i1.md")
	if content != "---\ntype: idea\nstatus: raw\neffort: medium\n---\n\nbody\n" {
		t.Errorf("content = %q", content)
	}
}

func TestAutoLeavesUnfixableUntouched(t *testing.T) {
	fx := newFixture(t)
	before := "---\ntype: idea\neffort: high\n---\n"
	fx.write(t, "ideas/i1.md", before)

	p, issues := fx.pipeline(t, false)
	if len(issues) != 1 || issues[0].Code != audit.CodeMissingRequired {
		t.Fatalf("issues = %v", issues)
	}

	summary, err := p.Auto(issues)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Counts.Remaining != 1 || summary.Counts.Fixed != 0 {
		t.Errorf("summary = %+v", summary.Counts)
	}
	if got := fx.read(t, "ideas/i1.md"); got != before {
		t.Errorf("file changed: %q", got)
	}
}

func TestAutoFixHygiene(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "ideas/i1.md", "---\ntype: idea\nstatus: raw\nstatus: active\neffort: high\n---\n\nsee [other]]\n")

	p, issues := fx.pipeline(t, false)
	summary, err := p.Auto(issues)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Counts.Errored != 0 || summary.Counts.Fixed == 0 {
		t.Fatalf("summary = %+v results=%v", summary.Counts, summary.Results)
	}

	content := fx.read(t, "ideas/i1.md")
	if got := content; got != "---\ntype: idea\nstatus: raw\neffort: high\n---\n\nsee [[other]]\n" {
		t.Errorf("content = %q", got)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	fx := newFixture(t)
	before := "---\ntype: idea\nstatus: rae\neffort: high\n---\n"
	fx.write(t, "ideas/i1.md", before)

	p, issues := fx.pipeline(t, true)
	summary, err := p.Auto(issues)
	if err != nil {
		t.Fatal(err)
	}
	if !summary.DryRun || summary.Counts.Fixed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if got := fx.read(t, "ideas/i1.md"); got != before {
		t.Errorf("file changed: %q", got)
	}
	if _, err := os.Stat(filepath.Join(fx.vault, schema.MetaDirName, "repairs.log")); !os.IsNotExist(err) {
		t.Errorf("journal written during dry run")
	}
}

func TestFailedFixRollsBack(t *testing.T) {
	fx := newFixture(t)
	before := "---\ntype: idea\nstatus: rae\neffort: high\n---\n"
	fx.write(t, "ideas/i1.md", before)

	p, issues := fx.pipeline(t, false)
	// An edit that rewrites the value to another invalid option cannot
	// verify and must be rolled back.
	bad := p.setOption("status", "rae", "rwa")
	res := p.apply(issues[0], bad)
	if res.Status != StatusErrored {
		t.Fatalf("result = %+v", res)
	}
	if got := fx.read(t, "ideas/i1.md"); got != before {
		t.Errorf("rollback failed: %q", got)
	}
}

func TestJournalRecordsFixes(t *testing.T) {
	fx := newFixture(t)
	fx.write(t, "ideas/i1.md", "---\ntype: idea\nstatus: rae\neffort: high\n---\n")

	p, issues := fx.pipeline(t, false)
	if _, err := p.Auto(issues); err != nil {
		t.Fatal(err)
	}

	entries, err := p.journal.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Code != audit.CodeInvalidOption || entries[0].Status != "fixed" {
		t.Errorf("entries = %+v", entries)
	}
}
