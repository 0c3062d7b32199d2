// Package paths provides canonical helpers for vault-relative paths and
// exclusion-entry normalization, so scanning, ownership indexing, and
// auditing all agree on what a path looks like.
package paths

import (
	"path/filepath"
	"strings"
)

// NormalizeRel normalizes a vault-relative path: OS separators become '/',
// leading "./" and "/" are trimmed, repeated '/' collapse.
func NormalizeRel(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// NormalizeExclusion normalizes a configured exclusion entry by stripping
// trailing separators, so "templates/" and "templates" exclude the same
// directory.
func NormalizeExclusion(entry string) string {
	entry = filepath.ToSlash(strings.TrimSpace(entry))
	entry = strings.TrimRight(entry, "/")
	return entry
}

// Basename returns the final path element without its extension.
func Basename(rel string) string {
	base := filepath.Base(filepath.ToSlash(rel))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StripExt removes a trailing ".md" if present.
func StripExt(rel string) string {
	return strings.TrimSuffix(rel, ".md")
}

// DirOf returns the normalized directory part of a vault-relative path,
// empty for files at the root.
func DirOf(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(NormalizeRel(rel)))
	if dir == "." {
		return ""
	}
	return dir
}

// Within reports whether rel sits at or below dir (both vault-relative).
func Within(rel, dir string) bool {
	rel = NormalizeRel(rel)
	dir = NormalizeRel(dir)
	if dir == "" {
		return true
	}
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}
