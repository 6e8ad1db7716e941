package domain

import "fmt"

// FieldDef pairs a field name with its definition for ordered schema
// construction.
type FieldDef struct {
	Name  string
	Field Field
}

// Schema is an ordered, immutable mapping from unique field name to field
// definition. Declaration order is significant: it breaks ties in the
// execution plan and fixes the column order of serialized output.
type Schema struct {
	names  []string
	fields map[string]Field
}

// NewSchema builds a schema from the given definitions, preserving order.
// It fails on empty or duplicate field names; deeper semantic checks are the
// job of Validate.
func NewSchema(defs ...FieldDef) (*Schema, error) {
	s := &Schema{
		names:  make([]string, 0, len(defs)),
		fields: make(map[string]Field, len(defs)),
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: field %d", ErrEmptyFieldName, len(s.names))
		}
		if def.Field == nil {
			return nil, fmt.Errorf("%w: field %q", ErrNilField, def.Name)
		}
		if _, exists := s.fields[def.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, def.Name)
		}
		s.names = append(s.names, def.Name)
		s.fields[def.Name] = def.Field
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for fixed schemas in tests
// and examples.
func MustSchema(defs ...FieldDef) *Schema {
	s, err := NewSchema(defs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the field names in declaration order. The returned slice is
// a copy; callers may mutate it freely.
func (s *Schema) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Field looks up a field definition by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Len returns the number of fields in the schema.
func (s *Schema) Len() int { return len(s.names) }
