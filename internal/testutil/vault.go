// Package testutil provides reusable test utilities for vault-based tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/vellum-notes/vellum/internal/schema"
)

// TestVault represents a temporary vault for testing.
type TestVault struct {
	Path   string
	t      *testing.T
	schema string
	files  map[string]string
}

// NewTestVault creates a new test vault builder.
// Call Build() to create the actual vault directory.
func NewTestVault(t *testing.T) *TestVault {
	t.Helper()
	return &TestVault{
		t:     t,
		files: make(map[string]string),
	}
}

// WithSchema sets the raw schema.json content for the vault.
func (v *TestVault) WithSchema(jsonDoc string) *TestVault {
	v.schema = jsonDoc
	return v
}

// WithSchemaDoc sets the schema from a document value.
func (v *TestVault) WithSchemaDoc(doc *schema.Document) *TestVault {
	v.t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		v.t.Fatalf("failed to marshal schema: %v", err)
	}
	v.schema = string(data)
	return v
}

// WithFile adds a file to the vault.
// The path is relative to the vault root.
func (v *TestVault) WithFile(path, content string) *TestVault {
	v.files[path] = content
	return v
}

// Build creates the vault directory and all configured files.
// Returns the TestVault for method chaining.
func (v *TestVault) Build() *TestVault {
	v.t.Helper()

	v.Path = v.t.TempDir()

	if v.schema != "" {
		v.writeFile(filepath.Join(schema.MetaDirName, schema.SchemaFileName), v.schema)
	}
	for path, content := range v.files {
		v.writeFile(path, content)
	}

	return v
}

func (v *TestVault) writeFile(relPath, content string) {
	v.t.Helper()
	fullPath := filepath.Join(v.Path, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		v.t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		v.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}
}

// ReadFile reads a file from the vault.
func (v *TestVault) ReadFile(relPath string) string {
	v.t.Helper()
	content, err := os.ReadFile(filepath.Join(v.Path, relPath))
	if err != nil {
		v.t.Fatalf("failed to read file %s: %v", relPath, err)
	}
	return string(content)
}

// FileExists checks if a file exists in the vault.
func (v *TestVault) FileExists(relPath string) bool {
	v.t.Helper()
	_, err := os.Stat(filepath.Join(v.Path, relPath))
	return err == nil
}
