package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MetaDirName is the vault metadata directory. It holds the schema document
// and is always excluded from scanning.
const MetaDirName = ".vellum"

// SchemaFileName is the schema document's name under MetaDirName.
const SchemaFileName = "schema.json"

// SchemaPath returns the fixed schema document path for a vault.
func SchemaPath(vaultPath string) string {
	return filepath.Join(vaultPath, MetaDirName, SchemaFileName)
}

// Load reads and decodes the schema document for a vault.
// A missing document yields an empty schema (just the implicit root type).
func Load(vaultPath string) (*Document, error) {
	schemaPath := SchemaPath(vaultPath)

	data, err := os.ReadFile(schemaPath)
	if os.IsNotExist(err) {
		return &Document{Types: map[string]*RawType{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", schemaPath, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", schemaPath, err)
	}
	if doc.Types == nil {
		doc.Types = map[string]*RawType{}
	}
	return &doc, nil
}
