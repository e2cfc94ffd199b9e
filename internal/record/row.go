package record

import (
	"bytes"
	"encoding/json"
)

type Field struct {
	Name  string
	Value Value
}

func NewField(name string, value Value) Field {
	return Field{Name: name, Value: value}
}

// Row is an ordered set of named values as produced by a Store. When a name
// repeats, the first occurrence wins.
type Row struct {
	fields []Field
}

func NewRow(fields ...Field) Row {
	row := Row{fields: make([]Field, 0, len(fields))}
	for _, field := range fields {
		if _, exists := row.Get(field.Name); exists {
			continue
		}
		row.fields = append(row.fields, field)
	}
	return row
}

func (r Row) Get(name string) (Value, bool) {
	for _, field := range r.fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return Value{}, false
}

func (r Row) Len() int {
	return len(r.fields)
}

func (r Row) Names() []string {
	names := make([]string, 0, len(r.fields))
	for _, field := range r.fields {
		names = append(names, field.Name)
	}
	return names
}

func (r Row) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Project keeps the fields named in names, in row order. Names the row does
// not carry are skipped. An empty names slice keeps every field.
func (r Row) Project(names []string) Row {
	if len(names) == 0 {
		return Row{fields: r.Fields()}
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	projected := make([]Field, 0, len(names))
	for _, field := range r.fields {
		if _, ok := wanted[field.Name]; ok {
			projected = append(projected, field)
		}
	}
	return Row{fields: projected}
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := field.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
