package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/ownership"
	"github.com/vellum-notes/vellum/internal/schema"
)

func testResolved(t *testing.T) *schema.Resolved {
	t.Helper()
	r, err := schema.Resolve(&schema.Document{Types: map[string]*schema.RawType{
		"objective": {},
		"task":      {Extends: "objective"},
		"draft": {Fields: map[string]*schema.RawField{
			"research": {Kind: schema.KindDynamic, SourceTypes: []string{"research"}, Multiple: true, Owned: true},
		}},
		"research": {},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func write(t *testing.T, vault, rel, content string) {
	t.Helper()
	full := filepath.Join(vault, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runConfig(vault string) config.RunConfig {
	return config.NewRunConfig(nil, nil, config.RunOptions{VaultPath: vault}, func(string) string { return "" })
}

func relPaths(files []*ManagedFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.RelativePath)
	}
	return out
}

func TestAllSkipsExcludedAndHidden(t *testing.T) {
	vault := t.TempDir()
	write(t, vault, "objectives/o1.md", "---\ntype: objective\n---\n")
	write(t, vault, ".vellum/schema.json", "{}")
	write(t, vault, ".hidden/x.md", "")
	write(t, vault, "objectives/readme.txt", "not a doc")

	s := New(testResolved(t), runConfig(vault), nil)
	files, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	got := relPaths(files)
	if len(got) != 1 || got[0] != "objectives/o1.md" {
		t.Errorf("files = %v", got)
	}
}

func TestAllSetsExpectedTypeByDeepestDir(t *testing.T) {
	vault := t.TempDir()
	write(t, vault, "objectives/o1.md", "")
	write(t, vault, "objectives/tasks/t1.md", "")
	write(t, vault, "loose.md", "")

	s := New(testResolved(t), runConfig(vault), nil)
	files, err := s.All()
	if err != nil {
		t.Fatal(err)
	}

	byRel := map[string]*ManagedFile{}
	for _, f := range files {
		byRel[f.RelativePath] = f
	}
	if byRel["objectives/o1.md"].ExpectedType != "objective" {
		t.Errorf("o1 expected type = %q", byRel["objectives/o1.md"].ExpectedType)
	}
	if byRel["objectives/tasks/t1.md"].ExpectedType != "task" {
		t.Errorf("t1 expected type = %q", byRel["objectives/tasks/t1.md"].ExpectedType)
	}
	if byRel["loose.md"].ExpectedType != "" {
		t.Errorf("loose expected type = %q", byRel["loose.md"].ExpectedType)
	}
}

func TestAllRespectsIgnoreFunc(t *testing.T) {
	vault := t.TempDir()
	write(t, vault, "objectives/keep.md", "")
	write(t, vault, "objectives/skip.md", "")

	s := New(testResolved(t), runConfig(vault), func(rel string) bool {
		return rel == "objectives/skip.md"
	})
	files, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	got := relPaths(files)
	if len(got) != 1 || got[0] != "objectives/keep.md" {
		t.Errorf("files = %v", got)
	}
}

func TestForTypeIncludesDescendantsAndOwned(t *testing.T) {
	vault := t.TempDir()
	write(t, vault, "objectives/o1.md", "")
	write(t, vault, "objectives/tasks/t1.md", "")
	write(t, vault, "researches/standalone.md", "")
	write(t, vault, "drafts/X/X.md", "")
	write(t, vault, "drafts/X/research/Y.md", "")

	r := testResolved(t)
	idx, err := ownership.Build(r, vault)
	if err != nil {
		t.Fatal(err)
	}
	s := New(r, runConfig(vault), nil)

	t.Run("descendants included", func(t *testing.T) {
		files, err := s.ForType("objective", idx)
		if err != nil {
			t.Fatal(err)
		}
		got := relPaths(files)
		want := []string{"objectives/o1.md", "objectives/tasks/t1.md"}
		if len(got) != len(want) {
			t.Fatalf("files = %v, want %v", got, want)
		}
	})

	t.Run("owned instances tagged", func(t *testing.T) {
		files, err := s.ForType("research", idx)
		if err != nil {
			t.Fatal(err)
		}
		var ownedFile *ManagedFile
		for _, f := range files {
			if f.RelativePath == "drafts/X/research/Y.md" {
				ownedFile = f
			}
		}
		if ownedFile == nil {
			t.Fatalf("owned instance missing from %v", relPaths(files))
		}
		if ownedFile.Ownership == nil || ownedFile.Ownership.OwnerPath != "drafts/X/X.md" {
			t.Errorf("ownership = %+v", ownedFile.Ownership)
		}
	})
}

func TestInstanceFolderDetection(t *testing.T) {
	vault := t.TempDir()
	write(t, vault, "drafts/X/X.md", "")
	write(t, vault, "drafts/X/notes.md", "")

	s := New(testResolved(t), runConfig(vault), nil)
	files, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	byRel := map[string]*ManagedFile{}
	for _, f := range files {
		byRel[f.RelativePath] = f
	}
	if byRel["drafts/X/X.md"].InstanceFolder != "drafts/X" {
		t.Errorf("instance folder = %q", byRel["drafts/X/X.md"].InstanceFolder)
	}
	if byRel["drafts/X/notes.md"].InstanceFolder != "" {
		t.Errorf("notes.md must not be an instance, got %q", byRel["drafts/X/notes.md"].InstanceFolder)
	}
}
