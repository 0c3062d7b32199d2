// Package schema handles schema loading and type-graph resolution.
package schema

// RootTypeName is the implicit root of the type graph. Every type without an
// explicit "extends" hangs off it, and it is synthesized when the schema
// document omits it.
const RootTypeName = "meta"

// Document is the raw schema document as authored by the user.
// It is the source of truth and is never mutated by the engine.
type Document struct {
	Version int                 `json:"version"`
	Enums   map[string][]string `json:"enums,omitempty"`
	Types   map[string]*RawType `json:"types"`
	Config  *DocumentConfig     `json:"config,omitempty"`
}

// DocumentConfig carries vault-level settings embedded in the schema document.
type DocumentConfig struct {
	IgnoredDirectories []string `json:"ignored_directories,omitempty"`
	AllowedExtraFields []string `json:"allowed_extra_fields,omitempty"`
}

// RawType is a single user-authored type definition.
type RawType struct {
	Extends         string               `json:"extends,omitempty"`
	Fields          map[string]*RawField `json:"fields,omitempty"`
	FieldOrder      []string             `json:"field_order,omitempty"`
	OutputDir       string               `json:"output_dir,omitempty"`
	FilenamePattern string               `json:"filename_pattern,omitempty"`
	BodySections    []string             `json:"body_sections,omitempty"`
	Recursive       bool                 `json:"recursive,omitempty"`
	Plural          string               `json:"plural,omitempty"`
}

// RawField is a user-authored field definition.
type RawField struct {
	Kind        FieldKind   `json:"kind"`
	Enum        string      `json:"enum,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Value       interface{} `json:"value,omitempty"` // For static fields: the identity value
	Label       string      `json:"label,omitempty"`
	Format      string      `json:"format,omitempty"`
	Filter      string      `json:"filter,omitempty"`
	SourceTypes []string    `json:"source_types,omitempty"` // For dynamic fields
	Multiple    bool        `json:"multiple,omitempty"`     // For dynamic fields
	Owned       bool        `json:"owned,omitempty"`        // For dynamic fields
}

// FieldKind identifies the shape and editing behavior of a field.
type FieldKind string

const (
	KindStatic     FieldKind = "static"
	KindSelect     FieldKind = "select"
	KindDynamic    FieldKind = "dynamic"
	KindMultiInput FieldKind = "multi_input"
	KindDate       FieldKind = "date"
	KindPlainInput FieldKind = "plain_input"
)

// FormatWikilink marks a field whose values must be written as [[wikilinks]].
const FormatWikilink = "wikilink"

// Field is an effective (merged) field on a resolved type.
type Field struct {
	Kind        FieldKind
	Enum        string
	Required    bool
	Default     interface{}
	Value       interface{}
	Label       string
	Format      string
	Filter      string
	SourceTypes []string
	Multiple    bool
	Owned       bool
}

// clone returns a copy safe to mutate during merging.
func (f *RawField) clone() *Field {
	eff := &Field{
		Kind:     f.Kind,
		Enum:     f.Enum,
		Required: f.Required,
		Default:  f.Default,
		Value:    f.Value,
		Label:    f.Label,
		Format:   f.Format,
		Filter:   f.Filter,
		Multiple: f.Multiple,
		Owned:    f.Owned,
	}
	if len(f.SourceTypes) > 0 {
		eff.SourceTypes = append([]string(nil), f.SourceTypes...)
	}
	return eff
}

// IsReference reports whether values of this field point at other documents.
func (f *Field) IsReference() bool {
	return f.Kind == KindDynamic || f.Format == FormatWikilink
}

// IsList reports whether values of this field are list-shaped.
func (f *Field) IsList() bool {
	return f.Multiple || f.Kind == KindMultiInput
}

// ResolvedType is a fully resolved type: inheritance flattened, fields
// merged, ownership declared. Immutable for the duration of a run.
type ResolvedType struct {
	Name            string
	Parent          string // empty only for the root type
	Children        []string
	Ancestors       []string // immediate parent first, root last
	Fields          map[string]*Field
	FieldOrder      []string
	BodySections    []string
	Recursive       bool
	OutputDir       string
	FilenamePattern string
	Plural          string
}

// OwnedField records one ownership edge as seen from the owner.
type OwnedField struct {
	FieldName string
	ChildType string
	Multiple  bool
}

// OwnerRef records one ownership edge as seen from the owned type.
type OwnerRef struct {
	OwnerType string
	FieldName string
	Multiple  bool
}

// OwnershipMap indexes ownership declarations in both directions.
type OwnershipMap struct {
	// Owns maps an owner type to the fields through which it owns children.
	Owns map[string][]OwnedField
	// CanBeOwnedBy maps a child type to its possible owners, sorted by
	// owner type name for determinism.
	CanBeOwnedBy map[string][]OwnerRef
}

// Resolved is the output of schema resolution: the full type graph plus
// enums and the ownership map. Computed once per run, then read-only.
type Resolved struct {
	Types     map[string]*ResolvedType
	Enums     map[string][]string
	Ownership *OwnershipMap
}

// Type returns the resolved type with the given name, if any.
func (r *Resolved) Type(name string) (*ResolvedType, bool) {
	t, ok := r.Types[name]
	return t, ok
}

// Descendants returns every type below name in the graph (not including
// name itself), in depth-first order.
func (r *Resolved) Descendants(name string) []string {
	var out []string
	t, ok := r.Types[name]
	if !ok {
		return nil
	}
	for _, child := range t.Children {
		out = append(out, child)
		out = append(out, r.Descendants(child)...)
	}
	return out
}

// EnumValues returns the ordered values of an enum, if defined.
func (r *Resolved) EnumValues(name string) ([]string, bool) {
	vals, ok := r.Enums[name]
	return vals, ok
}
