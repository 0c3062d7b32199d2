package audit

import (
	"sort"
	"strings"

	"github.com/gosimple/slug"

	"github.com/vellum-notes/vellum/internal/paths"
)

// linkIndex resolves wikilink targets against the corpus snapshot. Targets
// with a path component must match a vault-relative path exactly; bare
// names match by basename, falling back to slugified comparison.
type linkIndex struct {
	byRel  map[string]string
	byBase map[string][]string
	bySlug map[string][]string
}

func newLinkIndex(rels []string) *linkIndex {
	ix := &linkIndex{
		byRel:  map[string]string{},
		byBase: map[string][]string{},
		bySlug: map[string][]string{},
	}
	for _, rel := range rels {
		key := paths.StripExt(rel)
		ix.byRel[key] = rel
		base := paths.Basename(rel)
		ix.byBase[base] = append(ix.byBase[base], rel)
		s := slug.Make(base)
		if s != base {
			ix.bySlug[s] = append(ix.bySlug[s], rel)
		}
	}
	return ix
}

// resolve returns the unique match for a target, or the candidate list when
// the target is ambiguous. Both empty means the target is stale.
func (ix *linkIndex) resolve(target string) (match string, candidates []string) {
	target = paths.StripExt(paths.NormalizeRel(target))
	if target == "" {
		return "", nil
	}
	if rel, ok := ix.byRel[target]; ok {
		return rel, nil
	}
	if strings.Contains(target, "/") {
		return "", nil
	}

	matches := append([]string(nil), ix.byBase[target]...)
	if len(matches) == 0 {
		matches = append(matches, ix.bySlug[slug.Make(target)]...)
	}
	sort.Strings(matches)
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		return "", matches
	}
}
