// Package recordstore is the client boundary to the hosted record store
// that holds the quest catalog, the daily tracker and the quest log. The
// quest phases depend only on the Store interface; Notion implements it
// over HTTP and Memory implements it in-process.
package recordstore

import (
	"context"
	"time"
)

// Store performs typed record operations against named collections.
type Store interface {
	// Query returns the non-archived records in collection that match filter.
	// The zero Filter matches every record.
	Query(ctx context.Context, collection string, filter Filter) ([]Record, error)

	// Create inserts a record and returns it with its assigned ID.
	Create(ctx context.Context, collection string, props Properties) (Record, error)

	// Update overwrites the named properties of an existing record.
	Update(ctx context.Context, id string, props Properties) error

	// Archive soft-deletes a record so later queries no longer return it.
	Archive(ctx context.Context, id string) error

	// Get fetches a single record by ID.
	Get(ctx context.Context, id string) (Record, error)
}

// Record is one row of a collection.
type Record struct {
	ID         string
	Collection string
	CreatedAt  time.Time
	Archived   bool
	Properties Properties
}

// Properties maps property names to typed values.
type Properties map[string]Value

// ValueType identifies how a property value is encoded.
type ValueType string

const (
	TypeTitle    ValueType = "title"
	TypeRichText ValueType = "rich_text"
	TypeNumber   ValueType = "number"
	TypeCheckbox ValueType = "checkbox"
	TypeDate     ValueType = "date"
	TypeSelect   ValueType = "select"
	TypeRelation ValueType = "relation"
)

// Value is a typed property value. Only the field matching Type is set.
// A number or date value with a nil pointer is an explicit empty value.
type Value struct {
	Type     ValueType
	Text     string // title, rich_text, select
	Number   *float64
	Checkbox bool
	Date     *time.Time
	Relation []string
}

// Title returns a title value.
func Title(s string) Value { return Value{Type: TypeTitle, Text: s} }

// RichText returns a rich text value.
func RichText(s string) Value { return Value{Type: TypeRichText, Text: s} }

// Number returns a number value.
func Number(n float64) Value { return Value{Type: TypeNumber, Number: &n} }

// Checkbox returns a checkbox value.
func Checkbox(b bool) Value { return Value{Type: TypeCheckbox, Checkbox: b} }

// Date returns a date value.
func Date(t time.Time) Value { return Value{Type: TypeDate, Date: &t} }

// Select returns a select value naming one option.
func Select(name string) Value { return Value{Type: TypeSelect, Text: name} }

// Relation returns a relation value referencing the given record IDs.
func Relation(ids ...string) Value {
	return Value{Type: TypeRelation, Relation: append([]string(nil), ids...)}
}

// Text returns the text of a title, rich text or select property.
func (r Record) Text(name string) string {
	v, ok := r.Properties[name]
	if !ok {
		return ""
	}
	switch v.Type {
	case TypeTitle, TypeRichText, TypeSelect:
		return v.Text
	}
	return ""
}

// Number returns a number property and whether it was set.
func (r Record) Number(name string) (float64, bool) {
	v, ok := r.Properties[name]
	if !ok || v.Type != TypeNumber || v.Number == nil {
		return 0, false
	}
	return *v.Number, true
}

// Checkbox returns a checkbox property; missing properties read as false.
func (r Record) Checkbox(name string) bool {
	v, ok := r.Properties[name]
	return ok && v.Type == TypeCheckbox && v.Checkbox
}

// Date returns a date property, or nil if it is unset.
func (r Record) Date(name string) *time.Time {
	v, ok := r.Properties[name]
	if !ok || v.Type != TypeDate || v.Date == nil {
		return nil
	}
	t := *v.Date
	return &t
}

// Relation returns the IDs referenced by a relation property.
func (r Record) Relation(name string) []string {
	v, ok := r.Properties[name]
	if !ok || v.Type != TypeRelation {
		return nil
	}
	return v.Relation
}
