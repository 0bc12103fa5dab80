package dictionary

import (
	"errors"
	"slices"
	"strings"
)

// DefaultSentinel is the list item marking a field as required with no fixed
// enumeration.
const DefaultSentinel = "（此列为必填，但无固定枚举值）"

// ErrRuleSourceUnreadable indicates the rule source could not be opened or read.
var ErrRuleSourceUnreadable = errors.New("rule source unreadable")

// ErrMalformedRuleSource indicates a structured rule source that could not be decoded.
var ErrMalformedRuleSource = errors.New("malformed rule source")

// =============================================================================
// Allowed values
// =============================================================================

// Allowed describes the values a governed field may take.
// The zero value is Unconstrained.
type Allowed struct {
	values []string
	set    map[string]struct{}
}

// Unconstrained returns an Allowed that accepts any non-empty value.
func Unconstrained() Allowed {
	return Allowed{}
}

// Enumerated returns an Allowed restricted to the given values, in order.
// An empty list is Unconstrained.
func Enumerated(values ...string) Allowed {
	if len(values) == 0 {
		return Allowed{}
	}
	a := Allowed{
		values: slices.Clone(values),
		set:    make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		a.set[v] = struct{}{}
	}
	return a
}

// IsUnconstrained reports whether the field has no enumeration.
func (a Allowed) IsUnconstrained() bool {
	return len(a.values) == 0
}

// Values returns a copy of the enumeration in source order.
func (a Allowed) Values() []string {
	return slices.Clone(a.values)
}

// Len returns the number of enumerated values.
func (a Allowed) Len() int {
	return len(a.values)
}

// Contains reports whether v is an enumerated value. Matching is exact: no
// case folding and no trimming.
func (a Allowed) Contains(v string) bool {
	_, ok := a.set[v]
	return ok
}

// String returns a compact description for logs.
func (a Allowed) String() string {
	if a.IsUnconstrained() {
		return "required"
	}
	return "[" + strings.Join(a.values, ", ") + "]"
}

// =============================================================================
// Dictionary
// =============================================================================

// Entry is one field of a dictionary.
type Entry struct {
	Field   string
	Allowed Allowed
}

// Dictionary maps governed field names to their allowed values.
// It is immutable once built and safe for concurrent reads.
type Dictionary struct {
	fields []string
	rules  map[string]Allowed
}

// New builds a dictionary from entries. A later entry for the same field
// replaces the earlier one but keeps its original position.
func New(entries ...Entry) *Dictionary {
	d := &Dictionary{rules: make(map[string]Allowed, len(entries))}
	for _, e := range entries {
		if _, exists := d.rules[e.Field]; !exists {
			d.fields = append(d.fields, e.Field)
		}
		d.rules[e.Field] = e.Allowed
	}
	return d
}

// Lookup returns the allowed values for a field and whether it is governed.
func (d *Dictionary) Lookup(field string) (Allowed, bool) {
	if d == nil {
		return Allowed{}, false
	}
	a, ok := d.rules[field]
	return a, ok
}

// Governs reports whether the field is present in the dictionary.
func (d *Dictionary) Governs(field string) bool {
	_, ok := d.Lookup(field)
	return ok
}

// Fields returns governed field names in source order.
func (d *Dictionary) Fields() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.fields)
}

// Entries returns every field with its allowed values in source order.
func (d *Dictionary) Entries() []Entry {
	if d == nil {
		return nil
	}
	entries := make([]Entry, 0, len(d.fields))
	for _, f := range d.fields {
		entries = append(entries, Entry{Field: f, Allowed: d.rules[f]})
	}
	return entries
}

// Len returns the number of governed fields.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

// UnescapeFieldName converts the two-character escape \n to a line feed.
// Spreadsheet headers often contain hard line breaks that cannot be written
// on a single heading line.
func UnescapeFieldName(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
