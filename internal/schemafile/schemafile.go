// Package schemafile loads schema definitions from YAML files for the CLI.
// Every field kind is expressible except arbitrary compute functions; derived
// fields in a file use {field} templates instead.
package schemafile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-synth/internal/domain"
)

// fieldSpec is the YAML shape of one field. Which keys apply depends on kind.
type fieldSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// static
	Value any `yaml:"value"`

	// number
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	Decimals int     `yaml:"decimals"`

	// enum
	Options []optionSpec `yaml:"options"`

	// derived
	DependsOn []string `yaml:"depends_on"`
	Template  string   `yaml:"template"`

	// generated
	Prompt       string   `yaml:"prompt"`
	CoherentWith []string `yaml:"coherent_with"`
	Examples     []string `yaml:"examples"`
}

// optionSpec is one enum option. Scalar options ("- free") and mapping
// options ("- {value: free, weight: 3}") are both accepted.
type optionSpec struct {
	Value  any
	Weight float64
}

func (o *optionSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&o.Value)
	}
	var m struct {
		Value  any     `yaml:"value"`
		Weight float64 `yaml:"weight"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	o.Value, o.Weight = m.Value, m.Weight
	return nil
}

type fileSpec struct {
	Fields []fieldSpec `yaml:"fields"`
}

var templateRefs = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Load reads and parses a schema file.
func Load(path string) (*domain.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML from r into a validated, ordered schema.
func Parse(r io.Reader) (*domain.Schema, error) {
	var spec fileSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode schema file: %w", err)
	}
	if len(spec.Fields) == 0 {
		return nil, errors.New("schema file declares no fields")
	}

	defs := make([]domain.FieldDef, 0, len(spec.Fields))
	for _, fs := range spec.Fields {
		field, err := fs.toField()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}
		defs = append(defs, domain.FieldDef{Name: fs.Name, Field: field})
	}

	s, err := domain.NewSchema(defs...)
	if err != nil {
		return nil, err
	}
	if err := domain.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (fs fieldSpec) toField() (domain.Field, error) {
	switch fs.Kind {
	case "static":
		return domain.Static(fs.Value), nil

	case "number":
		return domain.Decimal(fs.Min, fs.Max, fs.Decimals), nil

	case "enum":
		opts := make([]domain.EnumOption, len(fs.Options))
		for i, o := range fs.Options {
			opts[i] = domain.EnumOption{Value: o.Value, Weight: o.Weight}
		}
		return domain.WeightedEnum(opts...), nil

	case "derived":
		if fs.Template == "" {
			return nil, errors.New("derived field needs a template")
		}
		deps := fs.DependsOn
		if len(deps) == 0 {
			// Dependencies default to the fields the template references.
			for _, m := range templateRefs.FindAllStringSubmatch(fs.Template, -1) {
				deps = append(deps, m[1])
			}
		}
		return domain.Derived(deps, templateCompute(fs.Template)), nil

	case "generated":
		g := domain.Generated(fs.Prompt, fs.CoherentWith...)
		g.Examples = fs.Examples
		return g, nil

	case "":
		return nil, errors.New("missing kind")
	default:
		return nil, fmt.Errorf("unknown kind %q", fs.Kind)
	}
}

// templateCompute renders "{field}" placeholders from resolved values.
// Unresolved references render as empty strings rather than failing, so a
// skipped upstream field degrades the output instead of aborting the record.
func templateCompute(template string) domain.ComputeFunc {
	return func(rec domain.Record) (any, error) {
		out := templateRefs.ReplaceAllStringFunc(template, func(ref string) string {
			name := strings.Trim(ref, "{}")
			v, ok := rec[name]
			if !ok || v == nil {
				return ""
			}
			return fmt.Sprint(v)
		})
		return out, nil
	}
}
