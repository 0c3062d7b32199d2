package schema

import "sort"

// Resolve turns a raw schema document into the resolved type graph.
//
// Resolution is all-or-nothing: the validation pass (unknown parents,
// inheritance cycles) runs first, and any violation aborts with a
// *SchemaError before any field merging happens.
func Resolve(doc *Document) (*Resolved, error) {
	raw := make(map[string]*RawType, len(doc.Types)+1)
	for name, rt := range doc.Types {
		if rt == nil {
			rt = &RawType{}
		}
		raw[name] = rt
	}
	if _, ok := raw[RootTypeName]; !ok {
		raw[RootTypeName] = &RawType{}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	// Parent assignment: explicit extends, else the implicit root.
	parents := make(map[string]string, len(raw))
	for name, rt := range raw {
		switch {
		case rt.Extends != "":
			parents[name] = rt.Extends
		case name == RootTypeName:
			parents[name] = ""
		default:
			parents[name] = RootTypeName
		}
	}

	// Validation pass, before any merging.
	for _, name := range names {
		parent := parents[name]
		if parent != "" {
			if _, ok := raw[parent]; !ok {
				return nil, &SchemaError{Code: ErrUnknownParent, TypeName: name, Parent: parent}
			}
		}
	}
	for _, name := range names {
		if cycle := findCycle(name, parents); cycle != nil {
			return nil, &SchemaError{Code: ErrInheritanceCycle, TypeName: name, Cycle: cycle}
		}
	}

	resolved := &Resolved{
		Types: make(map[string]*ResolvedType, len(raw)),
		Enums: make(map[string][]string, len(doc.Enums)),
	}
	for name, values := range doc.Enums {
		resolved.Enums[name] = append([]string(nil), values...)
	}

	for _, name := range names {
		rt := raw[name]
		t := &ResolvedType{
			Name:            name,
			Parent:          parents[name],
			Ancestors:       ancestorChain(name, parents),
			BodySections:    append([]string(nil), rt.BodySections...),
			Recursive:       rt.Recursive,
			OutputDir:       rt.OutputDir,
			FilenamePattern: rt.FilenamePattern,
			Plural:          rt.Plural,
		}
		mergeFields(t, rt, raw)
		orderFields(t, rt, raw)
		injectRecursiveParent(t)
		resolved.Types[name] = t
	}

	// Children, sorted for stable iteration.
	for _, name := range names {
		if parent := parents[name]; parent != "" {
			p := resolved.Types[parent]
			p.Children = append(p.Children, name)
		}
	}
	for _, t := range resolved.Types {
		sort.Strings(t.Children)
	}

	ownership, err := buildOwnershipMap(resolved)
	if err != nil {
		return nil, err
	}
	resolved.Ownership = ownership

	return resolved, nil
}

// findCycle walks the parent chain from start with a visited set. It returns
// the chain up to and including the first repeated name, or nil.
func findCycle(start string, parents map[string]string) []string {
	visited := map[string]bool{}
	chain := []string{}
	for name := start; name != ""; name = parents[name] {
		chain = append(chain, name)
		if visited[name] {
			return chain
		}
		visited[name] = true
	}
	return nil
}

// ancestorChain returns the parent chain of name, immediate parent first,
// root last. Callers must have passed cycle validation.
func ancestorChain(name string, parents map[string]string) []string {
	var chain []string
	for p := parents[name]; p != ""; p = parents[p] {
		chain = append(chain, p)
	}
	return chain
}

// ownFieldNames returns a raw type's own field names in a stable order:
// declared field_order entries first, then the rest alphabetically.
func ownFieldNames(rt *RawType) []string {
	names := make([]string, 0, len(rt.Fields))
	seen := make(map[string]bool, len(rt.Fields))
	for _, name := range rt.FieldOrder {
		if _, ok := rt.Fields[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(rt.Fields))
	for name := range rt.Fields {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// fieldOverride is the only payload a type may change on an inherited field:
// the default and the static identity value. Structural shape (kind,
// required, enum, sources) cannot be overridden, and that restriction is
// carried by this type rather than checked at merge time.
type fieldOverride struct {
	defaultValue interface{}
	staticValue  interface{}
}

func overrideFrom(rf *RawField) fieldOverride {
	return fieldOverride{defaultValue: rf.Default, staticValue: rf.Value}
}

func (o fieldOverride) applyTo(f *Field) {
	if o.defaultValue != nil {
		f.Default = o.defaultValue
	}
	if o.staticValue != nil {
		f.Value = o.staticValue
	}
}

// mergeFields computes the effective field set: ancestor fields copied from
// the type that first defines them (nearer ancestors win ties, because they
// are processed later), then the type's own fields, which may only override
// the default/value payload of anything inherited.
func mergeFields(t *ResolvedType, rt *RawType, raw map[string]*RawType) {
	t.Fields = make(map[string]*Field)
	var insertion []string

	for i := len(t.Ancestors) - 1; i >= 0; i-- {
		anc := raw[t.Ancestors[i]]
		for _, name := range ownFieldNames(anc) {
			if _, ok := t.Fields[name]; ok {
				continue
			}
			t.Fields[name] = anc.Fields[name].clone()
			insertion = append(insertion, name)
		}
	}

	for _, name := range ownFieldNames(rt) {
		own := rt.Fields[name]
		if inherited, ok := t.Fields[name]; ok {
			overrideFrom(own).applyTo(inherited)
			continue
		}
		t.Fields[name] = own.clone()
		insertion = append(insertion, name)
	}

	// Insertion order seeds the synthesized field order.
	t.FieldOrder = insertion
}

// orderFields settles the final field order. An explicit order that is a
// complete permutation of the effective field set is used verbatim;
// otherwise the order is synthesized from ancestor declarations root-first,
// then the type's own declaration, then anything still unplaced in
// effective insertion order.
func orderFields(t *ResolvedType, rt *RawType, raw map[string]*RawType) {
	insertion := t.FieldOrder

	if isCompletePermutation(rt.FieldOrder, t.Fields) {
		t.FieldOrder = append([]string(nil), rt.FieldOrder...)
		return
	}

	placed := make(map[string]bool, len(t.Fields))
	var order []string
	appendDeclared := func(declared []string) {
		for _, name := range declared {
			if _, ok := t.Fields[name]; !ok || placed[name] {
				continue
			}
			order = append(order, name)
			placed[name] = true
		}
	}

	for i := len(t.Ancestors) - 1; i >= 0; i-- {
		appendDeclared(raw[t.Ancestors[i]].FieldOrder)
	}
	appendDeclared(rt.FieldOrder)
	appendDeclared(insertion)

	t.FieldOrder = order
}

func isCompletePermutation(order []string, fields map[string]*Field) bool {
	if len(order) != len(fields) {
		return false
	}
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			return false
		}
		if _, ok := fields[name]; !ok {
			return false
		}
		seen[name] = true
	}
	return true
}

// injectRecursiveParent synthesizes the "parent" relation field on recursive
// types that do not define one themselves.
func injectRecursiveParent(t *ResolvedType) {
	if !t.Recursive {
		return
	}
	if _, ok := t.Fields["parent"]; ok {
		return
	}

	sources := []string{t.Name}
	if t.Parent != "" && t.Parent != RootTypeName {
		sources = []string{t.Parent, t.Name}
	}
	t.Fields["parent"] = &Field{
		Kind:        KindDynamic,
		Format:      FormatWikilink,
		SourceTypes: sources,
	}
	for _, name := range t.FieldOrder {
		if name == "parent" {
			return
		}
	}
	t.FieldOrder = append(t.FieldOrder, "parent")
}

// buildOwnershipMap scans every resolved type's effective fields for
// ownership declarations and indexes them in both directions.
func buildOwnershipMap(r *Resolved) (*OwnershipMap, error) {
	m := &OwnershipMap{
		Owns:         make(map[string][]OwnedField),
		CanBeOwnedBy: make(map[string][]OwnerRef),
	}

	typeNames := make([]string, 0, len(r.Types))
	for name := range r.Types {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	for _, ownerType := range typeNames {
		t := r.Types[ownerType]
		for _, fieldName := range t.FieldOrder {
			f := t.Fields[fieldName]
			if !f.Owned {
				continue
			}
			if f.Kind != KindDynamic || len(f.SourceTypes) == 0 {
				return nil, &SchemaError{Code: ErrOwnedFieldInvalid, TypeName: ownerType, FieldName: fieldName}
			}
			for _, childType := range f.SourceTypes {
				m.Owns[ownerType] = append(m.Owns[ownerType], OwnedField{
					FieldName: fieldName,
					ChildType: childType,
					Multiple:  f.Multiple,
				})
				m.CanBeOwnedBy[childType] = append(m.CanBeOwnedBy[childType], OwnerRef{
					OwnerType: ownerType,
					FieldName: fieldName,
					Multiple:  f.Multiple,
				})
			}
		}
	}

	for childType := range m.CanBeOwnedBy {
		refs := m.CanBeOwnedBy[childType]
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].OwnerType != refs[j].OwnerType {
				return refs[i].OwnerType < refs[j].OwnerType
			}
			return refs[i].FieldName < refs[j].FieldName
		})
	}

	return m, nil
}
