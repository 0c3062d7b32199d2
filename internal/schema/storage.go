package schema

import (
	"path"
	"strings"
)

// Pluralize applies the default English-style suffix rule: consonant+y
// becomes "ies", a sibilant ending gains "es", everything else gains "s".
func Pluralize(name string) string {
	if name == "" {
		return name
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "y") && len(lower) >= 2 && !isVowel(lower[len(lower)-2]) {
		return name[:len(name)-1] + "ies"
	}
	for _, suffix := range []string{"s", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(lower, suffix) {
			return name + "es"
		}
	}
	return name + "s"
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// pluralOf returns the type's display plural: an explicit override, or the
// default suffix rule.
func (t *ResolvedType) pluralOf() string {
	if t.Plural != "" {
		return t.Plural
	}
	return Pluralize(t.Name)
}

// StorageDir computes the vault-relative directory a type's documents live
// in: the type's own explicit output dir, else the nearest ancestor's, else
// a default built from the pluralized ancestry (root excluded) joined with
// the type's own pluralized name.
func (r *Resolved) StorageDir(typeName string) string {
	t, ok := r.Types[typeName]
	if !ok {
		return ""
	}
	if t.OutputDir != "" {
		return cleanDir(t.OutputDir)
	}
	for _, anc := range t.Ancestors {
		if a, ok := r.Types[anc]; ok && a.OutputDir != "" {
			return cleanDir(a.OutputDir)
		}
	}

	// Default: pluralized ancestor chain, root-to-leaf, then the type itself.
	var parts []string
	for i := len(t.Ancestors) - 1; i >= 0; i-- {
		anc := t.Ancestors[i]
		if anc == RootTypeName {
			continue
		}
		if a, ok := r.Types[anc]; ok {
			parts = append(parts, a.pluralOf())
		}
	}
	parts = append(parts, t.pluralOf())
	return path.Join(parts...)
}

func cleanDir(dir string) string {
	dir = strings.ReplaceAll(dir, "\\", "/")
	dir = strings.Trim(dir, "/")
	return path.Clean(dir)
}
