package domain

import "maps"

// Record is one generated row: the accumulating map of field name to
// resolved value.
type Record map[string]any

// Clone returns a shallow copy of the record. Returns nil for nil input.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// Project returns a copy of the record restricted to the named fields,
// skipping names that are not yet resolved.
func (r Record) Project(names []string) Record {
	out := make(Record, len(names))
	for _, name := range names {
		if v, ok := r[name]; ok {
			out[name] = v
		}
	}
	return out
}
