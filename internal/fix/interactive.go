package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/vellum-notes/vellum/internal/audit"
	"github.com/vellum-notes/vellum/internal/parser"
	"github.com/vellum-notes/vellum/internal/schema"
	"github.com/vellum-notes/vellum/internal/wikilink"
)

// Interactive walks issues one at a time, grouped by file, asking the
// prompt for each decision. An abort keeps committed fixes and reports
// everything not yet reached as remaining.
func (p *Pipeline) Interactive(issues []audit.Issue, prompt Prompt) (*Summary, error) {
	summary := &Summary{DryRun: p.dryRun, ByFile: map[string]Counts{}}

	groups, order := groupByFile(issues)
	for fi, rel := range order {
		for ii, issue := range groups[rel] {
			res, err := p.interactiveOne(issue, prompt)
			if errors.Is(err, ErrAborted) {
				summary.Aborted = true
				markRemaining(summary, groups, order, fi, ii)
				return summary, nil
			}
			if err != nil {
				return summary, err
			}
			summary.record(res)
		}
	}
	return summary, nil
}

func (p *Pipeline) interactiveOne(issue audit.Issue, prompt Prompt) (Result, error) {
	e, err := p.promptEdit(issue, prompt)
	if err != nil {
		return Result{}, err
	}
	if e == nil {
		return Result{Issue: issue, Status: StatusSkipped}, nil
	}
	return p.apply(issue, e), nil
}

// promptEdit builds an edit from a human decision. A nil edit with nil
// error means the user skipped, or the issue has no interactive repair.
func (p *Pipeline) promptEdit(issue audit.Issue, prompt Prompt) (edit, error) {
	header := fmt.Sprintf("%s: %s", issue.File, issue.Message)

	switch issue.Code {
	case audit.CodeInvalidOption:
		choices := p.optionChoices(issue)
		if len(choices) == 0 {
			return nil, nil
		}
		choice, ok, err := prompt.Select(header, choices)
		if err != nil || !ok {
			return nil, err
		}
		old, _ := issue.Extra["value"].(string)
		return p.setOption(issue.Field, old, choice), nil

	case audit.CodeMissingRequired:
		if choices := p.optionChoices(issue); len(choices) > 0 {
			choice, ok, err := prompt.Select(header, choices)
			if err != nil || !ok {
				return nil, err
			}
			return p.setStringField(issue.Field, choice), nil
		}
		value, ok, err := prompt.Input(header, issue.Suggestion)
		if err != nil || !ok {
			return nil, err
		}
		return p.setStringField(issue.Field, value), nil

	case audit.CodeOrphanFile:
		names := p.typeNames()
		choice, ok, err := prompt.Select(header, names)
		if err != nil || !ok {
			return nil, err
		}
		return p.setType(choice), nil

	case audit.CodeFormatViolation:
		if issue.Suggestion == "" {
			return nil, nil
		}
		choice, ok, err := prompt.Select(header, []string{issue.Suggestion})
		if err != nil || !ok {
			return nil, err
		}
		old, _ := issue.Extra["value"].(string)
		return p.setRefOption(issue.Field, old, choice), nil

	default:
		// Deterministic repairs still get an explicit confirmation here.
		if e := p.autoEdit(issue); e != nil {
			_, ok, err := prompt.Select(header, []string{"apply fix"})
			if err != nil || !ok {
				return nil, err
			}
			return e, nil
		}
		return nil, nil
	}
}

// optionChoices returns the allowed enum values for the issue's field, if
// the field is enum-backed.
func (p *Pipeline) optionChoices(issue audit.Issue) []string {
	typ := p.typeOf(issue.File)
	if typ == nil {
		return nil
	}
	field, ok := typ.Fields[issue.Field]
	if !ok || field.Enum == "" {
		return nil
	}
	values, _ := p.resolved.EnumValues(field.Enum)
	return values
}

func (p *Pipeline) typeNames() []string {
	var names []string
	for name := range p.resolved.Types {
		if name == schema.RootTypeName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// typeOf resolves the declared type of a file from its current content.
func (p *Pipeline) typeOf(rel string) *schema.ResolvedType {
	mf, ok := p.byRel[rel]
	if !ok {
		return nil
	}
	data, err := os.ReadFile(mf.Path)
	if err != nil {
		return nil
	}
	doc, err := parser.Parse(string(data))
	if err != nil {
		return nil
	}
	name, _ := doc.Frontmatter["type"].AsString()
	typ, _ := p.resolved.Type(name)
	return typ
}

// setStringField writes a plain string value into a field.
func (p *Pipeline) setStringField(field, value string) edit {
	return p.frontmatterEdit(func(typ *schema.ResolvedType, doc *parser.Document) error {
		doc.Frontmatter[field] = schema.String(value)
		return nil
	})
}

// setRefOption rewrites a bare string in a reference field as a wikilink,
// in place for scalars and per matching element for lists.
func (p *Pipeline) setRefOption(field, old, literal string) edit {
	return p.frontmatterEdit(func(typ *schema.ResolvedType, doc *parser.Document) error {
		target, _, ok := wikilink.ParseExact(literal)
		if !ok {
			return fmt.Errorf("not a wikilink: %q", literal)
		}
		val, present := doc.Frontmatter[field]
		if !present {
			return fmt.Errorf("field %q not present", field)
		}
		if list, isList := val.AsList(); isList {
			out := make([]schema.Value, len(list))
			for i, item := range list {
				if s, isStr := item.AsString(); isStr && s == old {
					out[i] = schema.Ref(target)
				} else {
					out[i] = item
				}
			}
			doc.Frontmatter[field] = schema.List(out)
			return nil
		}
		doc.Frontmatter[field] = schema.Ref(target)
		return nil
	})
}

// markRemaining records the aborted issue and every one after it.
func markRemaining(summary *Summary, groups map[string][]audit.Issue, order []string, fi, ii int) {
	for f := fi; f < len(order); f++ {
		issues := groups[order[f]]
		start := 0
		if f == fi {
			start = ii
		}
		for _, issue := range issues[start:] {
			summary.record(Result{Issue: issue, Status: StatusRemaining})
		}
	}
}
