// Package patch provides the building blocks for partial updates: a
// tri-state Field that tells "absent" apart from an explicit JSON null, and
// a typed change list produced by per-record comparators.
//
// Records describe their own fields; nothing in here uses reflection.
package patch

import (
	"bytes"
	"encoding/json"
	"time"
)

// Field is a single optional member of a PATCH body.
//
//   - absent:        Set == false
//   - explicit null: Set == true, Null == true
//   - value:         Set == true, Null == false, Value holds it
//
// encoding/json only calls UnmarshalJSON for keys that are present, which
// is what makes the absent state observable.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a Field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field holding an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON implements json.Marshaler. Absent and null both encode as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the field as a pointer: nil for an explicit null, a pointer
// to a copy of Value otherwise. Callers check Set first.
func (f Field[T]) Ptr() *T {
	if f.Null {
		return nil
	}
	v := f.Value
	return &v
}

// Op classifies a single field difference.
type Op string

const (
	// OpReplace means the field existed on both sides with different values.
	OpReplace Op = "replace"

	// OpAdd means the field is present on the candidate but was absent on
	// the original.
	OpAdd Op = "add"
)

// Change is one field-level difference between two versions of a record.
// Value is the candidate's value, nil for a null.
type Change struct {
	Field string
	Op    Op
	Value any
}

// Changes is the ordered result of comparing two records.
type Changes []Change

// Empty reports whether no field differs.
func (c Changes) Empty() bool {
	return len(c) == 0
}

// Dirty returns the field→new value map of the changes whose op is
// OpReplace. Added fields are not reported.
func (c Changes) Dirty() map[string]any {
	dirty := make(map[string]any, len(c))
	for _, ch := range c {
		if ch.Op == OpReplace {
			dirty[ch.Field] = ch.Value
		}
	}
	return dirty
}

// Fields returns the names of all changed fields in comparison order.
func (c Changes) Fields() []string {
	names := make([]string, len(c))
	for i, ch := range c {
		names[i] = ch.Field
	}
	return names
}

// Comparer accumulates changes for one record pair. Record types call one
// method per schema field, in schema order.
type Comparer struct {
	changes Changes
}

// String compares two required string fields.
func (c *Comparer) String(name, original, candidate string) {
	if original != candidate {
		c.changes = append(c.changes, Change{Field: name, Op: OpReplace, Value: candidate})
	}
}

// Int64 compares two required integer fields.
func (c *Comparer) Int64(name string, original, candidate int64) {
	if original != candidate {
		c.changes = append(c.changes, Change{Field: name, Op: OpReplace, Value: candidate})
	}
}

// Time compares two required timestamps by instant.
func (c *Comparer) Time(name string, original, candidate time.Time) {
	if !original.Equal(candidate) {
		c.changes = append(c.changes, Change{Field: name, Op: OpReplace, Value: candidate})
	}
}

// NullableString compares two nullable strings. A null is a value, so
// null→"x" and "x"→null are both replacements.
func (c *Comparer) NullableString(name string, original, candidate *string) {
	switch {
	case original == nil && candidate == nil:
		return
	case original == nil || candidate == nil || *original != *candidate:
		c.changes = append(c.changes, Change{Field: name, Op: OpReplace, Value: derefString(candidate)})
	}
}

// NullableTime compares two nullable timestamps by instant.
func (c *Comparer) NullableTime(name string, original, candidate *time.Time) {
	switch {
	case original == nil && candidate == nil:
		return
	case original == nil || candidate == nil || !original.Equal(*candidate):
		c.changes = append(c.changes, Change{Field: name, Op: OpReplace, Value: derefTime(candidate)})
	}
}

// Changes returns the accumulated change list.
func (c *Comparer) Changes() Changes {
	return c.changes
}

func derefString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
