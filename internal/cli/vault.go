package cli

import (
	"fmt"
	"os"

	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/ownership"
	"github.com/vellum-notes/vellum/internal/scan"
	"github.com/vellum-notes/vellum/internal/schema"
)

// vaultContext bundles everything a vault-scoped command needs: the loaded
// schema document, the resolved type graph, the run configuration, the
// ownership index, and the scan snapshot.
type vaultContext struct {
	doc      *schema.Document
	resolved *schema.Resolved
	rc       config.RunConfig
	owners   *ownership.Index
	files    []*scan.ManagedFile
}

// openVault loads and resolves the schema, builds the ownership index, and
// scans the corpus. typeName restricts the scan to one type and its
// descendants; empty scans everything.
func openVault(typeName string) (*vaultContext, error) {
	doc, err := schema.Load(resolvedVaultPath)
	if err != nil {
		return nil, err
	}
	resolved, err := schema.Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("schema error: %w", err)
	}

	rc := config.NewRunConfig(cfg, doc.Config, config.RunOptions{
		VaultPath:          resolvedVaultPath,
		AllowedExtraFields: allowFields,
	}, os.Getenv)

	owners, err := ownership.Build(resolved, rc.VaultPath)
	if err != nil {
		return nil, err
	}

	scanner := scan.New(resolved, rc, nil)
	var files []*scan.ManagedFile
	if typeName != "" {
		if _, ok := resolved.Type(typeName); !ok {
			return nil, fmt.Errorf("unknown type %q", typeName)
		}
		files, err = scanner.ForType(typeName, owners)
	} else {
		files, err = scanner.All()
	}
	if err != nil {
		return nil, err
	}

	return &vaultContext{
		doc:      doc,
		resolved: resolved,
		rc:       rc,
		owners:   owners,
		files:    files,
	}, nil
}
