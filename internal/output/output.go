// Package output serializes generated records. All formats emit fields in
// schema declaration order; keys added by transforms that the schema does not
// declare follow in sorted order.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-synth/internal/domain"
)

// Format names a supported serialization.
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatCSV    Format = "csv"
	FormatYAML   Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatNDJSON, FormatCSV, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Write serializes records to w in the given format.
func Write(w io.Writer, format Format, fieldNames []string, records []domain.Record) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, fieldNames, records)
	case FormatNDJSON:
		return writeNDJSON(w, fieldNames, records)
	case FormatCSV:
		return writeCSV(w, fieldNames, records)
	case FormatYAML:
		return writeYAML(w, fieldNames, records)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// orderedKeys returns the record's keys: declared fields first in schema
// order, then undeclared extras sorted.
func orderedKeys(fieldNames []string, rec domain.Record) []string {
	keys := make([]string, 0, len(rec))
	declared := make(map[string]bool, len(fieldNames))
	for _, name := range fieldNames {
		declared[name] = true
		if _, ok := rec[name]; ok {
			keys = append(keys, name)
		}
	}
	var extras []string
	for k := range rec {
		if !declared[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	return append(keys, extras...)
}

// jsonRecord marshals one record with deterministic key order. encoding/json
// sorts map keys alphabetically, so the object is assembled by hand.
func jsonRecord(fieldNames []string, rec domain.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range orderedKeys(fieldNames, rec) {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(rec[key])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", key, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(w io.Writer, fieldNames []string, records []domain.Record) error {
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, rec := range records {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString("  ")
		b, err := jsonRecord(fieldNames, rec)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteString("\n]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func writeNDJSON(w io.Writer, fieldNames []string, records []domain.Record) error {
	for _, rec := range records {
		b, err := jsonRecord(fieldNames, rec)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(w io.Writer, fieldNames []string, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fieldNames); err != nil {
		return err
	}
	row := make([]string, len(fieldNames))
	for _, rec := range records {
		for i, name := range fieldNames {
			v, ok := rec[name]
			if !ok || v == nil {
				row[i] = ""
				continue
			}
			row[i] = fmt.Sprint(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeYAML emits a sequence of mappings through explicit yaml.Node
// construction, since the encoder does not honor any key order for Go maps.
func writeYAML(w io.Writer, fieldNames []string, records []domain.Record) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, rec := range records {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range orderedKeys(fieldNames, rec) {
			var k, v yaml.Node
			k.SetString(key)
			if err := v.Encode(rec[key]); err != nil {
				return fmt.Errorf("encode field %q: %w", key, err)
			}
			m.Content = append(m.Content, &k, &v)
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}
