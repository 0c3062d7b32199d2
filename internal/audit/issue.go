// Package audit validates a scanned corpus against the resolved schema and
// classifies every deviation into a typed issue.
package audit

import "sort"

// Severity indicates how serious an issue is.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARN"
	default:
		return "UNKNOWN"
	}
}

// IssueCode is a closed enumeration of deviation classes.
type IssueCode string

const (
	CodeParseError           IssueCode = "parse-error"
	CodeOrphanFile           IssueCode = "orphan-file"
	CodeInvalidType          IssueCode = "invalid-type"
	CodeMissingRequired      IssueCode = "missing-required"
	CodeInvalidOption        IssueCode = "invalid-option"
	CodeInvalidListElement   IssueCode = "invalid-list-element"
	CodeUnknownField         IssueCode = "unknown-field"
	CodeFormatViolation      IssueCode = "format-violation"
	CodeWrongDirectory       IssueCode = "wrong-directory"
	CodeOwnedWrongLocation   IssueCode = "owned-wrong-location"
	CodeStaleReference       IssueCode = "stale-reference"
	CodeAmbiguousLinkTarget  IssueCode = "ambiguous-link-target"
	CodeSelfReference        IssueCode = "self-reference"
	CodeParentCycle          IssueCode = "parent-cycle"
	CodeOwnedNoteReferenced  IssueCode = "owned-note-referenced"
	CodeFrontmatterNotAtTop  IssueCode = "frontmatter-not-at-top"
	CodeDuplicateKeys        IssueCode = "duplicate-frontmatter-keys"
	CodeMalformedWikilink    IssueCode = "malformed-wikilink"
	CodeMissingSection       IssueCode = "missing-section"
)

// KnownCodes lists every issue code, for flag validation and docs.
func KnownCodes() []IssueCode {
	return []IssueCode{
		CodeParseError, CodeOrphanFile, CodeInvalidType, CodeMissingRequired,
		CodeInvalidOption, CodeInvalidListElement, CodeUnknownField,
		CodeFormatViolation, CodeWrongDirectory, CodeOwnedWrongLocation,
		CodeStaleReference, CodeAmbiguousLinkTarget, CodeSelfReference,
		CodeParentCycle, CodeOwnedNoteReferenced, CodeFrontmatterNotAtTop,
		CodeDuplicateKeys, CodeMalformedWikilink, CodeMissingSection,
	}
}

// Issue is one classified deviation. Never mutated after creation; a fix
// produces a fresh audit pass, not an edit of the old issue.
type Issue struct {
	Code       IssueCode              `json:"code"`
	Severity   Severity               `json:"severity"`
	File       string                 `json:"file"`
	Field      string                 `json:"field,omitempty"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// Summary aggregates counts over an issue collection. It is a pure
// projection, recomputed and never stored.
type Summary struct {
	Total    int               `json:"total"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
	ByCode   map[IssueCode]int `json:"by_code"`
	Files    int               `json:"files"`
}

// Summarize computes a Summary over issues.
func Summarize(issues []Issue) Summary {
	s := Summary{ByCode: map[IssueCode]int{}}
	files := map[string]bool{}
	for _, issue := range issues {
		s.Total++
		s.ByCode[issue.Code]++
		files[issue.File] = true
		if issue.Severity == SeverityError {
			s.Errors++
		} else {
			s.Warnings++
		}
	}
	s.Files = len(files)
	return s
}

// SortIssues orders issues by file, then code, then field, for stable
// reports.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}
		if issues[i].Code != issues[j].Code {
			return issues[i].Code < issues[j].Code
		}
		return issues[i].Field < issues[j].Field
	})
}
