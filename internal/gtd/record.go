package gtd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var errNotObject = errors.New("not a JSON object")

type field struct {
	key   string
	value json.RawMessage
}

// Record is a JSON object that keeps its fields in stored order and
// round-trips every field it does not interpret.
type Record struct {
	fields []field
}

// UnmarshalJSON accepts JSON objects; null is a no-op. A repeated key keeps
// its first position and its last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	rec, err := parseObject(data)
	if err != nil {
		return err
	}
	r.fields = rec.fields
	return nil
}

// parseObject decodes data, which must be a JSON object
func parseObject(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, errNotObject
	}

	var out Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Record{}, err
		}
		out = out.setRaw(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, errors.New("trailing data after object")
	}
	return out, nil
}

// MarshalJSON writes fields in stored order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.value); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Len returns the number of fields
func (r Record) Len() int {
	return len(r.fields)
}

// Keys returns field names in stored order
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.key
	}
	return keys
}

// Has reports whether the field is present, whatever its value
func (r Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Get returns the raw JSON value of a field
func (r Record) Get(key string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// String returns a string field's value, or "" when absent or not a string
func (r Record) String(key string) string {
	raw, ok := r.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Ref returns a field used as an identifier or reference. Absent and falsy
// values (null, "", false, 0) return "". A string returns its value, a
// number its shortest decimal form, and any other JSON value its compact
// text. A number and the string of its decimal form compare equal.
func (r Record) Ref(key string) string {
	raw, ok := r.Get(key)
	if !ok {
		return ""
	}
	return refValue(raw)
}

func refValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case 'n', 'f':
		// null, false
		return ""
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	if n, err := strconv.ParseFloat(string(raw), 64); err == nil {
		if n == 0 {
			return ""
		}
		// 1, 1.0 and 1e0 are the same number
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Set returns a copy with key set to value, marshaled as JSON. An existing
// key keeps its position. A value that cannot be marshaled is an error and
// the record is returned unchanged.
func (r Record) Set(key string, value any) (Record, error) {
	raw, ok := value.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(value)
		if err != nil {
			return r, fmt.Errorf("field %s: %w", key, err)
		}
		raw = b
	}
	return r.setRaw(key, raw), nil
}

// SetString returns a copy with key set to a JSON string
func (r Record) SetString(key, value string) Record {
	raw, _ := json.Marshal(value) // a string always marshals
	return r.setRaw(key, raw)
}

func (r Record) setRaw(key string, raw json.RawMessage) Record {
	out := r.clone()
	for i := range out.fields {
		if out.fields[i].key == key {
			out.fields[i].value = raw
			return out
		}
	}
	out.fields = append(out.fields, field{key: key, value: raw})
	return out
}

// Without returns a copy with key removed
func (r Record) Without(key string) Record {
	out := Record{fields: make([]field, 0, len(r.fields))}
	for _, f := range r.fields {
		if f.key != key {
			out.fields = append(out.fields, f)
		}
	}
	return out
}

func (r Record) clone() Record {
	out := Record{fields: make([]field, len(r.fields))}
	copy(out.fields, r.fields)
	return out
}
