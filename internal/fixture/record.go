package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/goseed/internal/store"
)

// Record is one fixture entry. Field order follows the source file.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.NewOrderedMap[string, any]()}
}

// RecordOf builds a record from alternating field/value pairs. It is meant
// for tests and panics on an odd argument count.
func RecordOf(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("fixture.RecordOf: odd argument count")
	}
	r := NewRecord()
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

// StableID returns the record's stableId, or "" when it is not a string.
func (r *Record) StableID() string {
	v, _ := r.fields.Get(store.FieldStableID)
	s, _ := v.(string)
	return s
}

// Get returns the value of field.
func (r *Record) Get(field string) (any, bool) {
	return r.fields.Get(field)
}

// Set writes field, keeping its position when it already exists.
func (r *Record) Set(field string, value any) {
	r.fields.Set(field, value)
}

// Delete removes field and reports whether it was present.
func (r *Record) Delete(field string) bool {
	return r.fields.Delete(field)
}

// Keys returns field names in order.
func (r *Record) Keys() []string {
	return r.fields.Keys()
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return r.fields.Len()
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for el := r.fields.Front(); el != nil; el = el.Next() {
		out.fields.Set(el.Key, cloneValue(el.Value))
	}
	return out
}

// Document converts the record into a store document.
func (r *Record) Document() store.Document {
	doc := make(store.Document, r.fields.Len())
	for el := r.fields.Front(); el != nil; el = el.Next() {
		doc[el.Key] = cloneValue(el.Value)
	}
	return doc
}

// MarshalJSON writes the fields in order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for el := r.fields.Front(); el != nil; el = el.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(el.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(el.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", el.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeRecord reads one JSON object keeping key order. ok is false when
// raw is valid JSON but not an object.
func decodeRecord(raw json.RawMessage) (rec *Record, ok bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, false, err
	}
	if d, isDelim := tok.(json.Delim); !isDelim || d != '{' {
		return nil, false, nil
	}

	rec = NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, true, err
		}
		key, _ := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, true, err
		}
		rec.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, true, err
	}
	return rec, true, nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case *Record:
		return t.Clone()
	default:
		return v
	}
}
