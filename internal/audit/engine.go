package audit

import (
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/ownership"
	"github.com/vellum-notes/vellum/internal/parser"
	"github.com/vellum-notes/vellum/internal/paths"
	"github.com/vellum-notes/vellum/internal/scan"
	"github.com/vellum-notes/vellum/internal/schema"
)

// Options control one audit run.
type Options struct {
	// Strict raises unknown-field to an error.
	Strict bool
	// OnlyIssue restricts the emitted set to one code. Applied last, after
	// all detection.
	OnlyIssue IssueCode
	// IgnoreIssue excludes one code. Applied last.
	IgnoreIssue IssueCode
}

// Engine validates managed files against the resolved schema.
type Engine struct {
	resolved *schema.Resolved
	owners   *ownership.Index
	rc       config.RunConfig
	opts     Options
}

// New creates an Engine.
func New(resolved *schema.Resolved, owners *ownership.Index, rc config.RunConfig, opts Options) *Engine {
	return &Engine{resolved: resolved, owners: owners, rc: rc, opts: opts}
}

// fileState is the loaded, parsed snapshot of one managed file.
type fileState struct {
	mf       *scan.ManagedFile
	content  string
	readErr  error
	parseErr error
	doc      *parser.Document
	hygiene  parser.Hygiene
	declared string
	typ      *schema.ResolvedType // nil when orphan or invalid
}

// Run performs a full audit pass and returns the filtered issue list.
func (e *Engine) Run(files []*scan.ManagedFile) []Issue {
	return e.Filter(e.RunAll(files))
}

// RunAll performs a full audit pass without the only/ignore filters, so
// callers can summarize ground truth before filtering.
func (e *Engine) RunAll(files []*scan.ManagedFile) []Issue {
	states := e.load(files)

	var issues []Issue
	for _, st := range states {
		issues = append(issues, e.fileIssues(st)...)
	}
	issues = append(issues, e.corpusIssues(states)...)

	SortIssues(issues)
	return issues
}

// RunFile re-audits a single file against the current corpus snapshot; used
// by the repair pipeline's reverify step.
func (e *Engine) RunFile(rel string, files []*scan.ManagedFile) []Issue {
	var out []Issue
	for _, issue := range e.RunAll(files) {
		if issue.File == rel {
			out = append(out, issue)
		}
	}
	return out
}

// Filter applies the only/ignore restrictions.
func (e *Engine) Filter(issues []Issue) []Issue {
	if e.opts.OnlyIssue == "" && e.opts.IgnoreIssue == "" {
		return issues
	}
	var out []Issue
	for _, issue := range issues {
		if e.opts.OnlyIssue != "" && issue.Code != e.opts.OnlyIssue {
			continue
		}
		if e.opts.IgnoreIssue != "" && issue.Code == e.opts.IgnoreIssue {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// load reads, hygiene-scans, and parses every file with a bounded worker
// pool. Results land by index, so output order matches input order.
func (e *Engine) load(files []*scan.ManagedFile) []*fileState {
	states := make([]*fileState, len(files))

	workers := e.rc.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, mf := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, mf *scan.ManagedFile) {
			defer wg.Done()
			defer func() { <-sem }()
			states[i] = e.loadOne(mf)
		}(i, mf)
	}
	wg.Wait()

	return states
}

func (e *Engine) loadOne(mf *scan.ManagedFile) *fileState {
	st := &fileState{mf: mf}

	data, err := os.ReadFile(mf.Path)
	if err != nil {
		st.readErr = err
		return st
	}
	st.content = string(data)
	st.hygiene = parser.ScanHygiene(st.content)

	doc, err := parser.Parse(st.content)
	if err != nil {
		st.parseErr = err
		return st
	}
	st.doc = doc

	if doc.HasFrontmatter {
		if name, ok := doc.Frontmatter["type"].AsString(); ok {
			st.declared = name
		}
	}
	if st.declared != "" {
		if typ, ok := e.resolved.Type(st.declared); ok {
			st.typ = typ
		}
	}
	return st
}

// fileIssues runs the per-file checks: parse isolation, type resolution,
// field validation, directory consistency, and raw-text hygiene.
func (e *Engine) fileIssues(st *fileState) []Issue {
	rel := st.mf.RelativePath

	if st.readErr != nil {
		return []Issue{{
			Code: CodeParseError, Severity: SeverityError, File: rel,
			Message: fmt.Sprintf("cannot read file: %v", st.readErr),
		}}
	}
	if st.parseErr != nil {
		// Parse failure isolates the file: one issue, nothing else checked.
		return []Issue{{
			Code: CodeParseError, Severity: SeverityError, File: rel,
			Message: fmt.Sprintf("malformed frontmatter: %v", st.parseErr),
		}}
	}

	issues := e.hygieneIssues(st)

	switch {
	case st.declared == "":
		issues = append(issues, Issue{
			Code: CodeOrphanFile, Severity: SeverityWarning, File: rel,
			Message: "file has no type declaration",
		})
		return issues
	case st.typ == nil:
		issues = append(issues, Issue{
			Code: CodeInvalidType, Severity: SeverityError, File: rel,
			Message: fmt.Sprintf("unknown type %q", st.declared),
		})
		return issues
	}

	issues = append(issues, e.fieldIssues(st)...)
	issues = append(issues, e.directoryIssues(st)...)
	issues = append(issues, e.sectionIssues(st)...)
	return issues
}

func (e *Engine) hygieneIssues(st *fileState) []Issue {
	rel := st.mf.RelativePath
	var issues []Issue

	if st.hygiene.MisplacedFrontmatter {
		issues = append(issues, Issue{
			Code: CodeFrontmatterNotAtTop, Severity: SeverityError, File: rel,
			Message: "frontmatter block is not at the top of the file",
		})
	}
	for _, key := range st.hygiene.DuplicateKeys {
		issues = append(issues, Issue{
			Code: CodeDuplicateKeys, Severity: SeverityError, File: rel, Field: key,
			Message: fmt.Sprintf("frontmatter key %q appears more than once", key),
		})
	}
	for _, link := range st.hygiene.MalformedLinks {
		issues = append(issues, Issue{
			Code: CodeMalformedWikilink, Severity: SeverityError, File: rel,
			Message:    fmt.Sprintf("malformed wikilink %q on line %d", link.Literal, link.Line),
			Suggestion: link.Fixed,
			Extra:      map[string]interface{}{"line": link.Line, "literal": link.Literal},
		})
	}
	return issues
}

func (e *Engine) fieldIssues(st *fileState) []Issue {
	rel := st.mf.RelativePath
	typ := st.typ
	fm := st.doc.Frontmatter
	var issues []Issue

	for _, name := range typ.FieldOrder {
		field := typ.Fields[name]
		val, present := fm[name]

		if field.Required && (!present || val.IsNull()) {
			issue := Issue{
				Code: CodeMissingRequired, File: rel, Field: name,
				Message: fmt.Sprintf("required field %q is missing", name),
			}
			if field.Default != nil {
				// A schema default makes this deterministically repairable.
				issue.Severity = SeverityWarning
				issue.Suggestion = fmt.Sprintf("%v", field.Default)
			} else {
				issue.Severity = SeverityError
			}
			issues = append(issues, issue)
		}
		if !present || val.IsNull() {
			continue
		}

		if field.Enum != "" {
			issues = append(issues, e.enumIssues(rel, name, field, val)...)
		}
		if field.IsList() {
			issues = append(issues, e.listIssues(rel, name, val)...)
		}
		if field.IsReference() {
			issues = append(issues, e.formatIssues(rel, name, field, val)...)
		}
	}

	for _, key := range st.doc.Keys {
		if key == "type" {
			continue
		}
		if _, known := typ.Fields[key]; known {
			continue
		}
		if e.rc.AllowsExtraField(key) {
			continue
		}
		severity := SeverityWarning
		if e.opts.Strict {
			severity = SeverityError
		}
		issues = append(issues, Issue{
			Code: CodeUnknownField, Severity: severity, File: rel, Field: key,
			Message: fmt.Sprintf("field %q is not defined for type %q", key, typ.Name),
		})
	}

	return issues
}

func (e *Engine) enumIssues(rel, name string, field *schema.Field, val schema.Value) []Issue {
	values, ok := e.resolved.EnumValues(field.Enum)
	if !ok {
		return nil
	}

	check := func(v schema.Value) *Issue {
		if v.IsNull() {
			return nil
		}
		s, isStr := v.AsString()
		if !isStr {
			// A non-string scalar can never match an option.
			return &Issue{
				Code: CodeInvalidOption, Severity: SeverityError, File: rel, Field: name,
				Message: fmt.Sprintf("value %v is not a valid option for %q (allowed: %v)", v.Raw(), name, values),
				Extra:   map[string]interface{}{"value": fmt.Sprintf("%v", v.Raw())},
			}
		}
		for _, allowed := range values {
			if allowed == s {
				return nil
			}
		}
		issue := &Issue{
			Code: CodeInvalidOption, Severity: SeverityError, File: rel, Field: name,
			Message: fmt.Sprintf("value %q is not a valid option for %q (allowed: %v)", s, name, values),
			Extra:   map[string]interface{}{"value": s},
		}
		if suggestion, ok := suggestOption(s, values, e.rc.SuggestionDistance); ok {
			issue.Suggestion = suggestion
		}
		return issue
	}

	var issues []Issue
	if list, ok := val.AsList(); ok {
		for _, item := range list {
			if field.IsList() {
				// Non-string elements of a list field are reported by the
				// list check instead.
				if _, isStr := item.AsString(); !isStr {
					continue
				}
			}
			if issue := check(item); issue != nil {
				issues = append(issues, *issue)
			}
		}
		return issues
	}
	if issue := check(val); issue != nil {
		issues = append(issues, *issue)
	}
	return issues
}

func (e *Engine) listIssues(rel, name string, val schema.Value) []Issue {
	list, ok := val.AsList()
	if !ok {
		return nil
	}
	for _, item := range list {
		if item.IsNull() {
			continue
		}
		if _, ok := item.AsString(); !ok {
			return []Issue{{
				Code: CodeInvalidListElement, Severity: SeverityError, File: rel, Field: name,
				Message: fmt.Sprintf("list field %q contains a non-string element", name),
			}}
		}
	}
	return nil
}

func (e *Engine) formatIssues(rel, name string, field *schema.Field, val schema.Value) []Issue {
	check := func(v schema.Value) *Issue {
		if v.IsNull() || v.IsRef() {
			return nil
		}
		s, isStr := v.AsString()
		if !isStr {
			return &Issue{
				Code: CodeFormatViolation, Severity: SeverityError, File: rel, Field: name,
				Message: fmt.Sprintf("field %q expects a [[wikilink]], got %v", name, v.Raw()),
				Extra:   map[string]interface{}{"value": fmt.Sprintf("%v", v.Raw())},
			}
		}
		return &Issue{
			Code: CodeFormatViolation, Severity: SeverityError, File: rel, Field: name,
			Message:    fmt.Sprintf("field %q expects a [[wikilink]], got %q", name, s),
			Suggestion: "[[" + s + "]]",
			Extra:      map[string]interface{}{"value": s},
		}
	}

	var issues []Issue
	if list, ok := val.AsList(); ok {
		for _, item := range list {
			if field.IsList() {
				if _, isStr := item.AsString(); !isStr {
					continue
				}
			}
			if issue := check(item); issue != nil {
				issues = append(issues, *issue)
			}
		}
		return issues
	}
	if issue := check(val); issue != nil {
		issues = append(issues, *issue)
	}
	return issues
}

func (e *Engine) directoryIssues(st *fileState) []Issue {
	rel := st.mf.RelativePath
	typ := st.typ

	storage := e.resolved.StorageDir(typ.Name)
	if paths.Within(rel, storage) {
		return nil
	}
	if _, owned := e.owners.IsOwned(rel); owned {
		return nil
	}

	ownedCapable := len(e.resolved.Ownership.CanBeOwnedBy[typ.Name]) > 0
	if ownedCapable && path.Base(paths.DirOf(rel)) == typ.Name {
		return []Issue{{
			Code: CodeOwnedWrongLocation, Severity: SeverityError, File: rel,
			Message: fmt.Sprintf("file sits in an owned-style %q folder but has no valid owner document", typ.Name),
		}}
	}
	return []Issue{{
		Code: CodeWrongDirectory, Severity: SeverityError, File: rel,
		Message: fmt.Sprintf("type %q documents belong under %q", typ.Name, storage),
		Extra:   map[string]interface{}{"expected_dir": storage},
	}}
}

func (e *Engine) sectionIssues(st *fileState) []Issue {
	rel := st.mf.RelativePath
	var issues []Issue
	for _, section := range st.typ.BodySections {
		if !parser.HasHeading(st.doc.Body, section) {
			issues = append(issues, Issue{
				Code: CodeMissingSection, Severity: SeverityWarning, File: rel,
				Message: fmt.Sprintf("body is missing the %q section", section),
			})
		}
	}
	return issues
}
