package recordstore

import "time"

// Op is a filter predicate operator.
type Op int

const (
	OpAll              Op = iota // matches every record
	OpRelationContains           // relation property references ID
	OpDateOnOrAfter              // date property is at or after Date
	OpCheckboxEquals             // checkbox property equals Bool
	OpAnd                        // every filter in And matches
)

// Filter is a structured query predicate. The zero value matches all records.
type Filter struct {
	Op       Op
	Property string
	ID       string
	Date     time.Time
	Bool     bool
	And      []Filter
}

// RelationContains matches records whose relation property references id.
func RelationContains(property, id string) Filter {
	return Filter{Op: OpRelationContains, Property: property, ID: id}
}

// DateOnOrAfter matches records whose date property is at or after t.
func DateOnOrAfter(property string, t time.Time) Filter {
	return Filter{Op: OpDateOnOrAfter, Property: property, Date: t}
}

// CheckboxEquals matches records whose checkbox property equals b.
func CheckboxEquals(property string, b bool) Filter {
	return Filter{Op: OpCheckboxEquals, Property: property, Bool: b}
}

// And matches records that satisfy every given filter.
func And(filters ...Filter) Filter {
	return Filter{Op: OpAnd, And: filters}
}

// IsZero reports whether f matches everything.
func (f Filter) IsZero() bool {
	return f.Op == OpAll
}

// Match evaluates the filter against a record locally.
func (f Filter) Match(r Record) bool {
	switch f.Op {
	case OpAll:
		return true
	case OpRelationContains:
		for _, id := range r.Relation(f.Property) {
			if id == f.ID {
				return true
			}
		}
		return false
	case OpDateOnOrAfter:
		d := r.Date(f.Property)
		return d != nil && !d.Before(f.Date)
	case OpCheckboxEquals:
		return r.Checkbox(f.Property) == f.Bool
	case OpAnd:
		for _, sub := range f.And {
			if !sub.Match(r) {
				return false
			}
		}
		return true
	}
	return false
}
