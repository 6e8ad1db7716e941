package domain

import "fmt"

// Validate checks schema semantics before any generation begins: referenced
// field names exist, numeric ranges are well-formed, enums are non-empty,
// derived fields carry a compute function, and generated fields carry a
// prompt. Cycle detection over the dependency graph is the planner's job;
// callers run both before touching a backend.
func Validate(s *Schema) error {
	for _, name := range s.names {
		field := s.fields[name]
		switch f := field.(type) {
		case StaticField:
			// Any constant is acceptable.
		case NumberField:
			if f.Min >= f.Max {
				return fmt.Errorf("field %q: %w (min=%v, max=%v)", name, ErrInvalidRange, f.Min, f.Max)
			}
		case EnumField:
			if len(f.Options) == 0 {
				return fmt.Errorf("field %q: %w", name, ErrEmptyEnum)
			}
		case DerivedField:
			if f.Compute == nil {
				return fmt.Errorf("field %q: %w", name, ErrMissingCompute)
			}
			for _, dep := range f.DependsOn {
				if _, ok := s.fields[dep]; !ok {
					return fmt.Errorf("field %q depends on %q: %w", name, dep, ErrUnknownReference)
				}
			}
		case GeneratedField:
			if f.Prompt == "" {
				return fmt.Errorf("field %q: %w", name, ErrEmptyPrompt)
			}
			for _, dep := range f.CoherentWith {
				if _, ok := s.fields[dep]; !ok {
					return fmt.Errorf("field %q is coherent with %q: %w", name, dep, ErrUnknownReference)
				}
			}
		default:
			return fmt.Errorf("field %q: unsupported field kind %q", name, field.Kind())
		}
	}
	return nil
}

// Prerequisites returns the field names that must be resolved before the
// given field: DependsOn for derived fields, CoherentWith for generated
// fields, nothing otherwise.
func Prerequisites(f Field) []string {
	switch f := f.(type) {
	case DerivedField:
		return f.DependsOn
	case GeneratedField:
		return f.CoherentWith
	case StaticField, NumberField, EnumField:
		return nil
	default:
		return nil
	}
}
