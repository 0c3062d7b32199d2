// Package parser handles reading and writing document frontmatter.
package parser

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vellum-notes/vellum/internal/schema"
	"github.com/vellum-notes/vellum/internal/wikilink"
)

// Delimiter is the frontmatter block marker line.
const Delimiter = "---"

// Date layouts used when YAML hands back a time.Time.
const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02 15:04"
)

// Document is a parsed document: its frontmatter map, the key order as
// read, and the body text that follows the block.
type Document struct {
	Frontmatter    map[string]schema.Value
	Keys           []string // frontmatter keys in document order
	Body           string
	HasFrontmatter bool
}

// FrontmatterBounds returns the delimiter line indices of the leading
// frontmatter block. ok is false when the first line is not a delimiter;
// endLine is -1 when the block is unclosed.
func FrontmatterBounds(lines []string) (startLine, endLine int, ok bool) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != Delimiter {
		return 0, -1, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == Delimiter {
			return 0, i, true
		}
	}
	return 0, -1, true
}

// Parse parses a document's content. A document without a leading
// frontmatter block parses successfully with HasFrontmatter false;
// malformed YAML inside the block is an error.
func Parse(content string) (*Document, error) {
	lines := strings.Split(content, "\n")

	_, endLine, ok := FrontmatterBounds(lines)
	if !ok {
		return &Document{Frontmatter: map[string]schema.Value{}, Body: content}, nil
	}
	if endLine == -1 {
		return nil, fmt.Errorf("unclosed frontmatter block")
	}

	block := strings.Join(lines[1:endLine], "\n")
	body := strings.Join(lines[endLine+1:], "\n")

	doc := &Document{
		Frontmatter:    map[string]schema.Value{},
		Body:           body,
		HasFrontmatter: true,
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if len(root.Content) == 0 {
		return doc, nil // empty block
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter is not a key/value map")
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		key := keyNode.Value

		var raw interface{}
		if err := valNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse frontmatter key %q: %w", key, err)
		}

		// Later duplicates win here, matching the YAML spec; the hygiene
		// scan reports duplicates from the raw text separately.
		if _, seen := doc.Frontmatter[key]; !seen {
			doc.Keys = append(doc.Keys, key)
		}
		doc.Frontmatter[key] = valueFromYAML(raw)
	}

	return doc, nil
}

// valueFromYAML converts a decoded YAML value to a schema.Value. Strings
// that are exactly a wikilink literal become references.
func valueFromYAML(raw interface{}) schema.Value {
	switch v := raw.(type) {
	case string:
		if target, _, ok := wikilink.ParseExact(v); ok {
			return schema.Ref(target)
		}
		return schema.String(v)
	case int:
		return schema.Number(float64(v))
	case int64:
		return schema.Number(float64(v))
	case float64:
		return schema.Number(v)
	case bool:
		return schema.Bool(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return schema.Date(v.Format(DateLayout))
		}
		return schema.Date(v.Format(DatetimeLayout))
	case []interface{}:
		items := make([]schema.Value, 0, len(v))
		for _, item := range v {
			items = append(items, valueFromYAML(item))
		}
		return schema.List(items)
	case nil:
		return schema.Null()
	default:
		return schema.Null()
	}
}

// Serialize renders frontmatter and body back to file content.
//
// Keys are emitted in fieldOrder first, then any remaining frontmatter keys
// in the order given by extra. Keys absent from the map are skipped, so the
// same order slice serves every document of a type.
func Serialize(fm map[string]schema.Value, fieldOrder, extra []string, body string) ([]byte, error) {
	var b strings.Builder
	b.WriteString(Delimiter + "\n")

	emitted := make(map[string]bool, len(fm))
	emit := func(key string) error {
		val, ok := fm[key]
		if !ok || emitted[key] {
			return nil
		}
		emitted[key] = true
		line, err := yaml.Marshal(map[string]interface{}{key: val.Raw()})
		if err != nil {
			return fmt.Errorf("serialize frontmatter key %q: %w", key, err)
		}
		b.Write(line)
		return nil
	}

	for _, key := range fieldOrder {
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	for _, key := range extra {
		if err := emit(key); err != nil {
			return nil, err
		}
	}

	b.WriteString(Delimiter + "\n")
	b.WriteString(body)
	return []byte(b.String()), nil
}
