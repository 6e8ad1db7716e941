// Package plan turns a schema into a linear execution order. Fields are
// visited depth-first over the union of dependsOn and coherentWith edges so
// every prerequisite resolves before its dependents; declaration order breaks
// ties, making the plan deterministic for a fixed schema.
package plan

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-synth/internal/domain"
)

// Plan is the total order in which a record's fields are resolved.
// It is intentionally flat rather than a DAG: generation within a record is
// strictly sequential, so a topological order is all the engine needs.
type Plan []string

// CycleError reports a dependency cycle, carrying the path that closed it.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// visit states for the depth-first traversal.
const (
	unvisited = iota
	visiting
	visited
)

// Build produces the execution plan for a schema. It returns a *CycleError
// when a back-edge is found and an unknown-reference error for edges pointing
// outside the schema (normally caught earlier by domain.Validate).
func Build(s *domain.Schema) (Plan, error) {
	state := make(map[string]int, s.Len())
	order := make(Plan, 0, s.Len())
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			// Back-edge: slice the traversal stack from the first occurrence
			// of name and close the loop for the error message.
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), name)
			return &CycleError{Path: path}
		}

		field, ok := s.Field(name)
		if !ok {
			return fmt.Errorf("field %q: %w", name, domain.ErrUnknownReference)
		}

		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range domain.Prerequisites(field) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = visited
		order = append(order, name)
		return nil
	}

	for _, name := range s.Names() {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
