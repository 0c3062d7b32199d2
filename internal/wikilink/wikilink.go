// Package wikilink provides canonical parsing and scanning of wikilinks.
//
// Grammar:
//   [[target]]
//   [[target|display text]]
//
// Target and display text are trimmed of surrounding whitespace. The package
// knows nothing about code fences; callers decide which regions to scan.
package wikilink

import (
	"regexp"
	"strings"
)

// Match is a wikilink found in a string (typically a single line).
type Match struct {
	Target  string
	Display string // empty if no display text
	Start   int
	End     int
	Literal string
}

// re matches [[target]] or [[target|display]]. The target cannot contain
// brackets, which keeps YAML flow sequences like [[[ref]]] out.
var re = regexp.MustCompile(`\[\[([^\]\[|]+)(?:\|([^\]]+))?\]\]`)

// ParseExact parses a string that is exactly a wikilink literal.
func ParseExact(s string) (target, display string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") {
		return "", "", false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "[["), "]]")
	if strings.ContainsAny(inner, "[]") {
		return "", "", false
	}
	parts := strings.SplitN(inner, "|", 2)
	target = strings.TrimSpace(parts[0])
	if target == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		display = strings.TrimSpace(parts[1])
	}
	return target, display, true
}

// Literal renders a target as a wikilink literal.
func Literal(target string) string {
	return "[[" + target + "]]"
}

// FindAllInLine finds well-formed wikilinks in a single line. Matches
// preceded or followed by an extra bracket are skipped; those belong to
// YAML flow sequences, not links.
func FindAllInLine(line string) []Match {
	var out []Match
	for _, m := range re.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		if start > 0 && line[start-1] == '[' {
			continue
		}
		if end < len(line) && line[end] == ']' {
			continue
		}
		target := strings.TrimSpace(line[m[2]:m[3]])
		if target == "" {
			continue
		}
		display := ""
		if m[4] >= 0 {
			display = strings.TrimSpace(line[m[4]:m[5]])
		}
		out = append(out, Match{
			Target:  target,
			Display: display,
			Start:   start,
			End:     end,
			Literal: line[start:end],
		})
	}
	return out
}

// NearMiss is a bracket-delimited reference that is almost, but not quite,
// a well-formed wikilink, e.g. [[target] or [target]].
type NearMiss struct {
	Target  string
	Start   int
	End     int
	Literal string
	Fixed   string // the canonical rewrite
}

// nearRe matches any bracket-run-delimited chunk; the counts decide whether
// it is well-formed, a near miss, or unrelated bracket syntax.
var nearRe = regexp.MustCompile(`(\[+)([^\]\[|]+)(\]+)`)

// FindNearMisses finds unbalanced two-bracket references in a line.
//
// Only the unambiguous shapes [[x] and [x]] are reported; single brackets
// are ordinary markdown and triple brackets are YAML flow sequences.
func FindNearMisses(line string) []NearMiss {
	var out []NearMiss
	for _, m := range nearRe.FindAllStringSubmatchIndex(line, -1) {
		opens := m[3] - m[2]
		closes := m[7] - m[6]
		if !(opens == 2 && closes == 1 || opens == 1 && closes == 2) {
			continue
		}
		target := strings.TrimSpace(line[m[4]:m[5]])
		if target == "" {
			continue
		}
		start, end := m[0], m[1]
		out = append(out, NearMiss{
			Target:  target,
			Start:   start,
			End:     end,
			Literal: line[start:end],
			Fixed:   Literal(target),
		})
	}
	return out
}
