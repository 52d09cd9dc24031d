package views

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Row is an immutable projection of one record onto an ordered column set.
type Row struct {
	names  []string
	values []Value
}

func NewRow(names []string, values []Value) Row {
	return Row{names: names, values: values}
}

func Project[R any](rows []R, cols []Column[R]) []Row {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		values := make([]Value, len(cols))
		for i, col := range cols {
			values[i] = col.Value(r)
		}
		out = append(out, Row{names: names, values: values})
	}
	return out
}

func (r Row) Names() []string { return r.names }

func (r Row) Values() []Value { return r.values }

func (r Row) Get(name string) (Value, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return Value{}, false
}

// MarshalJSON writes the cells in column order and drops unavailable ones.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i, v := range r.values {
		if !v.Valid() {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(r.names[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
