package telemetry

import (
	"bytes"
	"encoding/json"
)

// Entry is one name/value pair of a Projection.
type Entry struct {
	Name  string
	Value any
}

// Projection is an ordered name → value mapping. It marshals to a JSON
// object whose keys keep insertion order.
type Projection []Entry

// Get returns the value stored under name.
func (p Projection) Get(name string) (any, bool) {
	for _, e := range p {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Names returns the keys in order.
func (p Projection) Names() []string {
	out := make([]string, len(p))
	for i, e := range p {
		out[i] = e.Name
	}
	return out
}

// MarshalJSON writes the entries as an object in order.
func (p Projection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ValidateSelector resolves selector names to fields. The first name
// outside the schema fails with *UnknownFieldError. A repeated name keeps
// its first position only, so a projection never carries duplicate keys.
func ValidateSelector(selector []string) ([]Field, error) {
	fields := make([]Field, 0, len(selector))
	seen := make(map[Field]bool, len(selector))
	for _, name := range selector {
		f, ok := ParseField(name)
		if !ok {
			return nil, &UnknownFieldError{Name: name}
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields, nil
}

// Project reduces r to the selected fields in selector order.
//
// An empty selector returns every field in canonical order; unreported
// values appear as nil so the full record keeps its shape.
func Project(r *Record, selector []string) (Projection, error) {
	if len(selector) == 0 {
		return projectFields(r, Fields()), nil
	}
	fields, err := ValidateSelector(selector)
	if err != nil {
		return nil, err
	}
	return projectFields(r, fields), nil
}

// ProjectFields is Project for an already validated selector.
func ProjectFields(r *Record, fields []Field) Projection {
	if len(fields) == 0 {
		fields = Fields()
	}
	return projectFields(r, fields)
}

func projectFields(r *Record, fields []Field) Projection {
	out := make(Projection, 0, len(fields))
	for _, f := range fields {
		v, _ := r.Get(f)
		out = append(out, Entry{Name: f.String(), Value: v})
	}
	return out
}

// MarshalJSON renders the full record in canonical order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return projectFields(r, Fields()).MarshalJSON()
}
