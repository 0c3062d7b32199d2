package audit

import (
	"fmt"
	"sort"

	"github.com/vellum-notes/vellum/internal/ownership"
	"github.com/vellum-notes/vellum/internal/schema"
)

// corpusIssues runs the checks that need the whole snapshot: link
// resolution, ownership reference rules, and parent cycles.
func (e *Engine) corpusIssues(states []*fileState) []Issue {
	rels := make([]string, 0, len(states))
	for _, st := range states {
		rels = append(rels, st.mf.RelativePath)
	}
	ix := newLinkIndex(rels)

	var issues []Issue
	// parentOf maps a file to the file its parent field points at, for the
	// cycle walk below. Only recursive types with an unambiguously resolved
	// parent participate.
	parentOf := map[string]string{}

	for _, st := range states {
		if st.doc == nil || st.typ == nil {
			continue
		}
		rel := st.mf.RelativePath
		for _, name := range st.typ.FieldOrder {
			field := st.typ.Fields[name]
			if !field.IsReference() {
				continue
			}
			val, present := st.doc.Frontmatter[name]
			if !present || val.IsNull() {
				continue
			}
			for _, target := range refTargets(val) {
				issue, match := e.referenceIssue(ix, rel, name, target)
				if issue != nil {
					issues = append(issues, *issue)
					continue
				}
				if name == "parent" && st.typ.Recursive && match != "" {
					parentOf[rel] = match
				}
			}
		}
	}

	issues = append(issues, parentCycleIssues(parentOf)...)
	return issues
}

// refTargets extracts every wikilink target from a field value.
func refTargets(val schema.Value) []string {
	var out []string
	if list, ok := val.AsList(); ok {
		for _, item := range list {
			if target, ok := item.AsRef(); ok {
				out = append(out, target)
			}
		}
		return out
	}
	if target, ok := val.AsRef(); ok {
		out = append(out, target)
	}
	return out
}

// referenceIssue classifies a single link target. On success it returns the
// resolved vault-relative path instead of an issue.
func (e *Engine) referenceIssue(ix *linkIndex, rel, field, target string) (*Issue, string) {
	match, candidates := ix.resolve(target)
	if len(candidates) > 0 {
		return &Issue{
			Code: CodeAmbiguousLinkTarget, Severity: SeverityError, File: rel, Field: field,
			Message: fmt.Sprintf("link target %q matches %d files", target, len(candidates)),
			Extra:   map[string]interface{}{"candidates": candidates},
		}, ""
	}
	if match == "" {
		return &Issue{
			Code: CodeStaleReference, Severity: SeverityError, File: rel, Field: field,
			Message: fmt.Sprintf("link target %q does not resolve to any file", target),
		}, ""
	}
	if match == rel {
		return &Issue{
			Code: CodeSelfReference, Severity: SeverityWarning, File: rel, Field: field,
			Message: fmt.Sprintf("field %q links the file to itself", field),
		}, match
	}
	if res := e.owners.CanReference(rel, match); !res.Valid && res.Reason == ownership.ReasonReferencingOwned {
		return &Issue{
			Code: CodeOwnedNoteReferenced, Severity: SeverityError, File: rel, Field: field,
			Message: fmt.Sprintf("%q is owned by %q and cannot be referenced from elsewhere", match, res.OwnerPath),
			Extra:   map[string]interface{}{"owner": res.OwnerPath},
		}, match
	}
	return nil, match
}

// parentCycleIssues walks the parent graph and reports each cycle once,
// anchored at its lexicographically smallest member.
func parentCycleIssues(parentOf map[string]string) []Issue {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}

	files := make([]string, 0, len(parentOf))
	for rel := range parentOf {
		files = append(files, rel)
	}
	sort.Strings(files)

	var issues []Issue
	for _, start := range files {
		if color[start] != white {
			continue
		}
		var stack []string
		node := start
		for {
			if color[node] == gray {
				// Found a cycle; slice it out of the walk stack.
				i := 0
				for stack[i] != node {
					i++
				}
				cycle := append([]string(nil), stack[i:]...)
				if len(cycle) > 1 {
					issues = append(issues, cycleIssue(cycle))
				}
				break
			}
			if color[node] == black {
				break
			}
			color[node] = gray
			stack = append(stack, node)
			next, ok := parentOf[node]
			if !ok {
				break
			}
			node = next
		}
		for _, rel := range stack {
			color[rel] = black
		}
	}
	return issues
}

func cycleIssue(cycle []string) Issue {
	// Rotate so the smallest member leads, keeping the report stable no
	// matter where the walk entered the cycle.
	min := 0
	for i, rel := range cycle {
		if rel < cycle[min] {
			min = i
		}
	}
	rotated := append(append([]string(nil), cycle[min:]...), cycle[:min]...)
	return Issue{
		Code: CodeParentCycle, Severity: SeverityError, File: rotated[0], Field: "parent",
		Message: fmt.Sprintf("parent links form a cycle through %d files", len(rotated)),
		Extra:   map[string]interface{}{"cycle": rotated},
	}
}
