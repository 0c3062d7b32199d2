package schema

import (
	"fmt"
	"strings"
)

// SchemaErrorCode classifies fatal schema-resolution failures.
type SchemaErrorCode string

const (
	// ErrUnknownParent means a type's "extends" names a type that does not exist.
	ErrUnknownParent SchemaErrorCode = "unknown-parent"
	// ErrInheritanceCycle means the parent chain revisits a type.
	ErrInheritanceCycle SchemaErrorCode = "inheritance-cycle"
	// ErrOwnedFieldInvalid means a field declares owned=true but is not a
	// dynamic field with at least one source type.
	ErrOwnedFieldInvalid SchemaErrorCode = "owned-field-invalid"
)

// SchemaError is a fatal resolution failure. It aborts the entire run before
// any scanning or auditing takes place.
type SchemaError struct {
	Code      SchemaErrorCode
	TypeName  string
	Parent    string   // for unknown-parent
	Cycle     []string // for inheritance-cycle: the offending chain
	FieldName string   // for owned-field-invalid
}

func (e *SchemaError) Error() string {
	switch e.Code {
	case ErrUnknownParent:
		return fmt.Sprintf("type %q extends unknown type %q", e.TypeName, e.Parent)
	case ErrInheritanceCycle:
		return fmt.Sprintf("inheritance cycle: %s", strings.Join(e.Cycle, " -> "))
	case ErrOwnedFieldInvalid:
		return fmt.Sprintf("type %q: field %q is marked owned but is not a dynamic field with source types", e.TypeName, e.FieldName)
	default:
		return fmt.Sprintf("schema error (%s) on type %q", e.Code, e.TypeName)
	}
}
