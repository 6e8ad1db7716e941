// Package domain defines the schema model for synthetic record generation:
// the closed set of field kinds, the ordered schema that holds them, and the
// validation rules enforced before any generation begins.
package domain

// FieldKind identifies one of the five field variants a schema may contain.
type FieldKind string

const (
	// KindStatic is a constant value repeated in every record.
	KindStatic FieldKind = "static"

	// KindNumber is a uniform draw from a half-open numeric range.
	KindNumber FieldKind = "number"

	// KindEnum is a weighted draw from a fixed option list.
	KindEnum FieldKind = "enum"

	// KindDerived is a pure function of other already-resolved fields.
	KindDerived FieldKind = "derived"

	// KindGenerated is produced by an external text-generation backend.
	KindGenerated FieldKind = "generated"
)

// Field is the closed tagged union over the five field variants.
// The unexported method seals the interface so every switch over field kinds
// can be exhaustive.
type Field interface {
	Kind() FieldKind
	isField()
}

// StaticField holds a constant, JSON-serializable value.
type StaticField struct {
	Value any
}

func (StaticField) Kind() FieldKind { return KindStatic }
func (StaticField) isField()        {}

// NumberField draws uniformly from [Min, Max). Decimals controls rounding
// precision; zero means the value is floored to an integer.
type NumberField struct {
	Min      float64
	Max      float64
	Decimals int
}

func (NumberField) Kind() FieldKind { return KindNumber }
func (NumberField) isField()        {}

// EnumOption pairs a candidate value with its selection weight.
// A weight of zero or less is treated as the default weight of 1.
type EnumOption struct {
	Value  any
	Weight float64
}

// EnumField selects one option per record with probability proportional
// to option weight.
type EnumField struct {
	Options []EnumOption
}

func (EnumField) Kind() FieldKind { return KindEnum }
func (EnumField) isField()        {}

// ComputeFunc derives a value from the partially-built record. The function
// must be pure and must only read fields named in the owning field's
// DependsOn set; the engine resolves those fields first but does not restrict
// the map it passes in.
type ComputeFunc func(rec Record) (any, error)

// DerivedField computes its value from other already-resolved fields and
// never calls an external backend.
type DerivedField struct {
	DependsOn []string
	Compute   ComputeFunc
}

func (DerivedField) Kind() FieldKind { return KindDerived }
func (DerivedField) isField()        {}

// GeneratedField is resolved by an external text-generation backend.
// CoherentWith names fields whose resolved values are folded into the
// generation context so outputs describe a mutually consistent entity.
// Examples, when present, are appended to the prompt as style guidance.
type GeneratedField struct {
	Prompt       string
	CoherentWith []string
	Examples     []string
}

func (GeneratedField) Kind() FieldKind { return KindGenerated }
func (GeneratedField) isField()        {}

// Static returns a constant field definition.
func Static(value any) StaticField { return StaticField{Value: value} }

// Number returns an integer-valued range field over [min, max).
func Number(min, max float64) NumberField { return NumberField{Min: min, Max: max} }

// Decimal returns a range field rounded to the given number of decimals.
func Decimal(min, max float64, decimals int) NumberField {
	return NumberField{Min: min, Max: max, Decimals: decimals}
}

// Enum returns an equally-weighted enum field over the given values.
func Enum(values ...any) EnumField {
	opts := make([]EnumOption, len(values))
	for i, v := range values {
		opts[i] = EnumOption{Value: v, Weight: 1}
	}
	return EnumField{Options: opts}
}

// WeightedEnum returns an enum field with explicit option weights.
func WeightedEnum(options ...EnumOption) EnumField {
	return EnumField{Options: options}
}

// Derived returns a field computed from the named dependencies.
func Derived(dependsOn []string, compute ComputeFunc) DerivedField {
	return DerivedField{DependsOn: dependsOn, Compute: compute}
}

// Generated returns a backend-generated field for the given prompt.
func Generated(prompt string, coherentWith ...string) GeneratedField {
	return GeneratedField{Prompt: prompt, CoherentWith: coherentWith}
}
