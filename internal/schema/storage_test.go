package schema

import "testing"

func TestPluralize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"task", "tasks"},
		{"entity", "entities"},
		{"day", "days"},
		{"boss", "bosses"},
		{"box", "boxes"},
		{"quiz", "quizes"}, // simple suffix rule, no consonant doubling
		{"branch", "branches"},
		{"wish", "wishes"},
		{"idea", "ideas"},
	}
	for _, c := range cases {
		if got := Pluralize(c.in); got != c.want {
			t.Errorf("Pluralize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStorageDir(t *testing.T) {
	r := mustResolve(t, &Document{Types: map[string]*RawType{
		"objective": {},
		"task":      {Extends: "objective"},
		"draft":     {OutputDir: "writing/drafts"},
		"chapter":   {Extends: "draft"},
		"entity":    {Plural: "entities"},
	}})

	t.Run("default pluralized ancestry", func(t *testing.T) {
		if got := r.StorageDir("task"); got != "objectives/tasks" {
			t.Errorf("StorageDir(task) = %q, want objectives/tasks", got)
		}
	})

	t.Run("explicit dir wins", func(t *testing.T) {
		if got := r.StorageDir("draft"); got != "writing/drafts" {
			t.Errorf("StorageDir(draft) = %q, want writing/drafts", got)
		}
	})

	t.Run("nearest ancestor dir inherited", func(t *testing.T) {
		if got := r.StorageDir("chapter"); got != "writing/drafts" {
			t.Errorf("StorageDir(chapter) = %q, want writing/drafts", got)
		}
	})

	t.Run("plural override", func(t *testing.T) {
		if got := r.StorageDir("entity"); got != "entities" {
			t.Errorf("StorageDir(entity) = %q, want entities", got)
		}
	})
}
