package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/schema"
	"github.com/vellum-notes/vellum/internal/ui"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the resolved type graph",
	Long: `Schema resolves the vault's type definitions and prints the result: the
type tree, each type's effective fields, its storage directory, and its
ownership relationships.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := schema.Load(resolvedVaultPath)
		if err != nil {
			return err
		}
		resolved, err := schema.Resolve(doc)
		if err != nil {
			return fmt.Errorf("schema error: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(schemaView(resolved))
		}

		printType(resolved, schema.RootTypeName, 0)
		return nil
	},
}

func printType(r *schema.Resolved, name string, depth int) {
	typ, ok := r.Type(name)
	if !ok {
		return
	}

	indent := strings.Repeat("  ", depth)
	header := ui.AccentBold.Render(name)
	if name != schema.RootTypeName {
		header += " " + ui.Hint(r.StorageDir(name))
	}
	fmt.Println(indent + header)

	for _, fieldName := range typ.FieldOrder {
		field := typ.Fields[fieldName]
		var attrs []string
		attrs = append(attrs, string(field.Kind))
		if field.Enum != "" {
			values, _ := r.EnumValues(field.Enum)
			attrs = append(attrs, fmt.Sprintf("enum %s %v", field.Enum, values))
		}
		if field.Required {
			attrs = append(attrs, "required")
		}
		if field.Owned {
			attrs = append(attrs, "owned")
		}
		if field.Format != "" {
			attrs = append(attrs, field.Format)
		}
		fmt.Printf("%s  %s: %s\n", indent, fieldName, ui.Hint(strings.Join(attrs, ", ")))
	}
	if typ.FilenamePattern != "" {
		fmt.Printf("%s  %s\n", indent, ui.Hint("filename pattern: "+typ.FilenamePattern))
	}
	for _, owner := range r.Ownership.CanBeOwnedBy[name] {
		fmt.Printf("%s  %s\n", indent, ui.Hint(fmt.Sprintf("owned by %s via %s", owner.OwnerType, owner.FieldName)))
	}

	for _, child := range typ.Children {
		printType(r, child, depth+1)
	}
}

// schemaTypeView is the JSON projection of one resolved type.
type schemaTypeView struct {
	Parent          string                   `json:"parent,omitempty"`
	Children        []string                 `json:"children,omitempty"`
	Fields          map[string]*schema.Field `json:"fields,omitempty"`
	FieldOrder      []string                 `json:"field_order,omitempty"`
	StorageDir      string                   `json:"storage_dir,omitempty"`
	FilenamePattern string                   `json:"filename_pattern,omitempty"`
	Recursive       bool                     `json:"recursive,omitempty"`
}

func schemaView(r *schema.Resolved) map[string]schemaTypeView {
	out := make(map[string]schemaTypeView, len(r.Types))
	for name, typ := range r.Types {
		view := schemaTypeView{
			Parent:          typ.Parent,
			Children:        typ.Children,
			Fields:          typ.Fields,
			FieldOrder:      typ.FieldOrder,
			FilenamePattern: typ.FilenamePattern,
			Recursive:       typ.Recursive,
		}
		if name != schema.RootTypeName {
			view.StorageDir = r.StorageDir(name)
		}
		out[name] = view
	}
	return out
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
