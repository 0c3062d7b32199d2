package parser

import (
	"regexp"
	"strings"

	"github.com/vellum-notes/vellum/internal/wikilink"
)

// Hygiene is computed from the raw pre-parse text. Duplicate keys and
// bracket typos are invisible once the YAML map exists, so these checks
// never look at parsed values.
type Hygiene struct {
	// MisplacedFrontmatter is true when a frontmatter block exists but is
	// not at the very top of the file.
	MisplacedFrontmatter bool
	// DuplicateKeys lists top-level keys that appear more than once inside
	// the frontmatter block, in first-occurrence order.
	DuplicateKeys []string
	// MalformedLinks lists bracket near-misses found outside code fences.
	MalformedLinks []MalformedLink
}

// MalformedLink is one almost-wikilink found in the raw text.
type MalformedLink struct {
	Line    int // 1-indexed
	Literal string
	Fixed   string
}

var topLevelKeyRe = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*:`)

// ScanHygiene runs the raw-text hygiene checks over a document's content.
func ScanHygiene(content string) Hygiene {
	lines := strings.Split(content, "\n")
	var h Hygiene

	start, end := misplacedBlock(lines)
	h.MisplacedFrontmatter = start > 0

	// Duplicate keys are checked inside whichever block exists, leading or
	// misplaced.
	if start >= 0 && end > start {
		counts := map[string]int{}
		var order []string
		for _, line := range lines[start+1 : end] {
			m := topLevelKeyRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if counts[m[1]] == 0 {
				order = append(order, m[1])
			}
			counts[m[1]]++
		}
		for _, key := range order {
			if counts[key] > 1 {
				h.DuplicateKeys = append(h.DuplicateKeys, key)
			}
		}
	}

	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, miss := range wikilink.FindNearMisses(line) {
			h.MalformedLinks = append(h.MalformedLinks, MalformedLink{
				Line:    i + 1,
				Literal: miss.Literal,
				Fixed:   miss.Fixed,
			})
		}
	}

	return h
}

// misplacedBlock locates the first complete frontmatter block anywhere in
// the file. Returns (-1, -1) when no block exists.
func misplacedBlock(lines []string) (start, end int) {
	start, end = -1, -1
	for i, line := range lines {
		if strings.TrimSpace(line) != Delimiter {
			continue
		}
		if start == -1 {
			start = i
		} else {
			end = i
			break
		}
	}
	if start == -1 || end == -1 {
		return -1, -1
	}
	// A pair of horizontal rules is not frontmatter; require at least one
	// key line inside the block.
	for _, line := range lines[start+1 : end] {
		if topLevelKeyRe.MatchString(line) {
			return start, end
		}
	}
	return -1, -1
}

// RelocateFrontmatter moves a misplaced frontmatter block to the top of the
// file. Returns the rewritten content and whether anything changed.
func RelocateFrontmatter(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	start, end := misplacedBlock(lines)
	if start <= 0 || end <= start {
		return content, false
	}

	block := lines[start : end+1]
	rest := append(append([]string{}, lines[:start]...), lines[end+1:]...)

	// Drop leading blank lines that used to sit above the block.
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}

	out := append(append([]string{}, block...), rest...)
	return strings.Join(out, "\n"), true
}

// DedupeFrontmatterKeys drops every repeated top-level key inside the
// frontmatter block, keeping the first occurrence. Returns the rewritten
// content and whether anything changed.
func DedupeFrontmatterKeys(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	start, end := misplacedBlock(lines)
	if start == -1 {
		return content, false
	}

	seen := map[string]bool{}
	var out []string
	changed := false
	skipping := false
	for i, line := range lines {
		if i <= start || i >= end {
			out = append(out, line)
			continue
		}
		if m := topLevelKeyRe.FindStringSubmatch(line); m != nil {
			if seen[m[1]] {
				changed = true
				skipping = true // also drop the key's continuation lines
				continue
			}
			seen[m[1]] = true
			skipping = false
		} else if skipping && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "-")) {
			continue
		} else {
			skipping = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), changed
}

// RewriteMalformedLinks fixes every bracket near-miss in the content.
func RewriteMalformedLinks(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	changed := false
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		misses := wikilink.FindNearMisses(line)
		if len(misses) == 0 {
			continue
		}
		// Replace right to left so offsets stay valid.
		for j := len(misses) - 1; j >= 0; j-- {
			m := misses[j]
			line = line[:m.Start] + m.Fixed + line[m.End:]
		}
		lines[i] = line
		changed = true
	}
	return strings.Join(lines, "\n"), changed
}
