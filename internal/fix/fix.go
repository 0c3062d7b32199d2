// Package fix repairs audit issues, deterministically in auto mode or one
// decision at a time in interactive mode. Every write is atomic and is
// re-verified by a fresh file-scoped audit pass before it counts as fixed;
// a write that does not clear its issue is rolled back.
package fix

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/vellum-notes/vellum/internal/atomicfile"
	"github.com/vellum-notes/vellum/internal/audit"
	"github.com/vellum-notes/vellum/internal/config"
	"github.com/vellum-notes/vellum/internal/parser"
	"github.com/vellum-notes/vellum/internal/scan"
	"github.com/vellum-notes/vellum/internal/schema"
)

// Status is the outcome of one issue in a repair run.
type Status int

const (
	StatusPending Status = iota
	StatusFixed
	StatusSkipped
	StatusRemaining
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusFixed:
		return "fixed"
	case StatusSkipped:
		return "skipped"
	case StatusRemaining:
		return "remaining"
	case StatusErrored:
		return "errored"
	default:
		return "pending"
	}
}

// Result pairs an issue with its outcome.
type Result struct {
	Issue  audit.Issue
	Status Status
	Err    error
}

// Counts aggregates outcomes.
type Counts struct {
	Fixed     int `json:"fixed"`
	Skipped   int `json:"skipped"`
	Remaining int `json:"remaining"`
	Errored   int `json:"errored"`
}

func (c *Counts) add(s Status) {
	switch s {
	case StatusFixed:
		c.Fixed++
	case StatusSkipped:
		c.Skipped++
	case StatusRemaining:
		c.Remaining++
	case StatusErrored:
		c.Errored++
	}
}

// Summary is the outcome of a whole repair run.
type Summary struct {
	DryRun  bool              `json:"dry_run,omitempty"`
	Aborted bool              `json:"aborted,omitempty"`
	Counts  Counts            `json:"counts"`
	ByFile  map[string]Counts `json:"by_file"`
	Results []Result          `json:"-"`
}

func (s *Summary) record(r Result) {
	s.Results = append(s.Results, r)
	s.Counts.add(r.Status)
	c := s.ByFile[r.Issue.File]
	c.add(r.Status)
	s.ByFile[r.Issue.File] = c
}

// Clean reports whether nothing was left remaining or errored.
func (s *Summary) Clean() bool {
	return s.Counts.Remaining == 0 && s.Counts.Errored == 0
}

// Pipeline applies fixes against a corpus snapshot.
type Pipeline struct {
	resolved *schema.Resolved
	engine   *audit.Engine
	rc       config.RunConfig
	files    []*scan.ManagedFile
	byRel    map[string]*scan.ManagedFile
	journal  *Journal
	dryRun   bool
}

// NewPipeline creates a Pipeline. The engine is used unfiltered for the
// reverify passes; files is the scan snapshot the issues were produced from.
func NewPipeline(resolved *schema.Resolved, engine *audit.Engine, rc config.RunConfig, files []*scan.ManagedFile, dryRun bool) *Pipeline {
	byRel := make(map[string]*scan.ManagedFile, len(files))
	for _, mf := range files {
		byRel[mf.RelativePath] = mf
	}
	return &Pipeline{
		resolved: resolved,
		engine:   engine,
		rc:       rc,
		files:    files,
		byRel:    byRel,
		journal:  NewJournal(rc.VaultPath, !dryRun),
		dryRun:   dryRun,
	}
}

// edit computes new file content from current content. A nil edit means the
// issue has no deterministic resolution.
type edit func(content string) (string, error)

// Auto applies every deterministic fix. Independent files are processed
// concurrently; issues within one file stay in order.
func (p *Pipeline) Auto(issues []audit.Issue) (*Summary, error) {
	summary := &Summary{DryRun: p.dryRun, ByFile: map[string]Counts{}}

	groups, order := groupByFile(issues)

	workers := p.rc.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	results := make([][]Result, len(order))
	var wg sync.WaitGroup
	for i, rel := range order {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rel string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.fixFile(rel, groups[rel])
		}(i, rel)
	}
	wg.Wait()

	for _, rs := range results {
		for _, r := range rs {
			summary.record(r)
		}
	}
	return summary, nil
}

// fixFile walks one file's issues in order, applying deterministic fixes.
func (p *Pipeline) fixFile(rel string, issues []audit.Issue) []Result {
	results := make([]Result, 0, len(issues))
	for _, issue := range issues {
		e := p.autoEdit(issue)
		if e == nil {
			results = append(results, Result{Issue: issue, Status: StatusRemaining})
			continue
		}
		results = append(results, p.apply(issue, e))
	}
	return results
}

// autoEdit classifies an issue as deterministically fixable or not.
func (p *Pipeline) autoEdit(issue audit.Issue) edit {
	switch issue.Code {
	case audit.CodeMissingRequired:
		if issue.Suggestion == "" {
			return nil
		}
		return p.setFieldDefault(issue.Field)
	case audit.CodeInvalidOption:
		if issue.Suggestion == "" {
			return nil
		}
		old, _ := issue.Extra["value"].(string)
		return p.setOption(issue.Field, old, issue.Suggestion)
	case audit.CodeMalformedWikilink:
		return func(content string) (string, error) {
			out, _ := parser.RewriteMalformedLinks(content)
			return out, nil
		}
	case audit.CodeDuplicateKeys:
		return func(content string) (string, error) {
			out, _ := parser.DedupeFrontmatterKeys(content)
			return out, nil
		}
	case audit.CodeFrontmatterNotAtTop:
		return func(content string) (string, error) {
			out, _ := parser.RelocateFrontmatter(content)
			return out, nil
		}
	default:
		return nil
	}
}

// setFieldDefault writes the schema default into a missing required field.
func (p *Pipeline) setFieldDefault(field string) edit {
	return p.frontmatterEdit(func(typ *schema.ResolvedType, doc *parser.Document) error {
		f, ok := typ.Fields[field]
		if !ok || f.Default == nil {
			return fmt.Errorf("field %q has no default", field)
		}
		doc.Frontmatter[field] = schema.FromRaw(f.Default)
		return nil
	})
}

// setOption replaces a bad enum value, in place for scalars and per
// matching element for lists.
func (p *Pipeline) setOption(field, old, choice string) edit {
	return p.frontmatterEdit(func(typ *schema.ResolvedType, doc *parser.Document) error {
		val, ok := doc.Frontmatter[field]
		if !ok {
			return fmt.Errorf("field %q not present", field)
		}
		if list, isList := val.AsList(); isList {
			out := make([]schema.Value, len(list))
			for i, item := range list {
				if s, isStr := item.AsString(); isStr && s == old {
					out[i] = schema.String(choice)
				} else {
					out[i] = item
				}
			}
			doc.Frontmatter[field] = schema.List(out)
			return nil
		}
		doc.Frontmatter[field] = schema.String(choice)
		return nil
	})
}

// setType assigns a type to an untyped file, creating the frontmatter block
// when absent.
func (p *Pipeline) setType(name string) edit {
	return func(content string) (string, error) {
		doc, err := parser.Parse(content)
		if err != nil {
			return "", err
		}
		typ, ok := p.resolved.Type(name)
		if !ok {
			return "", fmt.Errorf("unknown type %q", name)
		}
		doc.Frontmatter["type"] = schema.String(name)
		out, err := parser.Serialize(doc.Frontmatter, keyOrder(typ), doc.Keys, doc.Body)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// frontmatterEdit parses, mutates, and reserializes the frontmatter of a
// typed file, preserving unknown keys.
func (p *Pipeline) frontmatterEdit(mutate func(*schema.ResolvedType, *parser.Document) error) edit {
	return func(content string) (string, error) {
		doc, err := parser.Parse(content)
		if err != nil {
			return "", err
		}
		name, _ := doc.Frontmatter["type"].AsString()
		typ, ok := p.resolved.Type(name)
		if !ok {
			return "", fmt.Errorf("unknown type %q", name)
		}
		if err := mutate(typ, doc); err != nil {
			return "", err
		}
		out, err := parser.Serialize(doc.Frontmatter, keyOrder(typ), doc.Keys, doc.Body)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// keyOrder is the serialization order for a type: the discriminator first,
// then the resolved field order. Unknown keys follow via the extra slice.
func keyOrder(typ *schema.ResolvedType) []string {
	return append([]string{"type"}, typ.FieldOrder...)
}

// apply runs the write-then-reverify-or-rollback contract for one issue.
func (p *Pipeline) apply(issue audit.Issue, e edit) Result {
	mf, ok := p.byRel[issue.File]
	if !ok {
		return Result{Issue: issue, Status: StatusErrored, Err: fmt.Errorf("file %q not in scan snapshot", issue.File)}
	}

	old, err := os.ReadFile(mf.Path)
	if err != nil {
		return Result{Issue: issue, Status: StatusErrored, Err: err}
	}
	newContent, err := e(string(old))
	if err != nil {
		return Result{Issue: issue, Status: StatusErrored, Err: err}
	}

	if p.dryRun {
		return Result{Issue: issue, Status: StatusFixed}
	}

	if newContent == string(old) {
		// An earlier fix to this file may have already cleared the issue.
		if p.reproduces(issue) {
			return Result{Issue: issue, Status: StatusRemaining}
		}
		return Result{Issue: issue, Status: StatusFixed}
	}

	if err := atomicfile.WriteFile(mf.Path, []byte(newContent), filePerm(mf.Path)); err != nil {
		return Result{Issue: issue, Status: StatusErrored, Err: err}
	}

	if p.reproduces(issue) {
		if rbErr := atomicfile.WriteFile(mf.Path, old, filePerm(mf.Path)); rbErr != nil {
			return Result{Issue: issue, Status: StatusErrored, Err: fmt.Errorf("fix did not verify; rollback failed: %w", rbErr)}
		}
		res := Result{Issue: issue, Status: StatusErrored, Err: fmt.Errorf("fix did not verify, rolled back")}
		p.journalResult(res)
		return res
	}

	res := Result{Issue: issue, Status: StatusFixed}
	p.journalResult(res)
	return res
}

// reproduces reports whether the issue's (code, field) pair survives a
// fresh audit of its file.
func (p *Pipeline) reproduces(issue audit.Issue) bool {
	for _, got := range p.engine.RunFile(issue.File, p.files) {
		if got.Code == issue.Code && got.Field == issue.Field {
			return true
		}
	}
	return false
}

func (p *Pipeline) journalResult(r Result) {
	entry := JournalEntry{
		File:   r.Issue.File,
		Code:   r.Issue.Code,
		Field:  r.Issue.Field,
		Status: r.Status.String(),
	}
	if r.Err != nil {
		entry.Detail = r.Err.Error()
	}
	// Journal failures never fail the fix itself.
	_ = p.journal.Record(entry)
}

func filePerm(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

// groupByFile splits issues by file, preserving the sorted file order.
func groupByFile(issues []audit.Issue) (map[string][]audit.Issue, []string) {
	groups := map[string][]audit.Issue{}
	var order []string
	for _, issue := range issues {
		if _, seen := groups[issue.File]; !seen {
			order = append(order, issue.File)
		}
		groups[issue.File] = append(groups[issue.File], issue)
	}
	sort.Strings(order)
	return groups, order
}
