// Package validate checks individual cells against a rule dictionary.
//
// Validation is a pure function of the raw value, the field name and the
// dictionary. Checks run in a fixed order: emptiness first, then
// enumeration membership.
package validate

import (
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/dictionary"
	"github.com/leapstack-labs/leapcheck/pkg/normalize"
)

// Result classifies a single cell.
type Result int

// Cell results.
const (
	// ResultPass means the value satisfies every applicable constraint.
	ResultPass Result = iota
	// ResultEmpty means the value normalizes to the empty string.
	ResultEmpty
	// ResultNotInDictionary means the value is outside the field's enumeration.
	ResultNotInDictionary
)

// String returns the string representation of the result.
func (r Result) String() string {
	switch r {
	case ResultPass:
		return "pass"
	case ResultEmpty:
		return "empty"
	case ResultNotInDictionary:
		return "not_in_dictionary"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Kind maps a failing result to its finding kind.
// Returns false for ResultPass.
func (r Result) Kind() (core.FindingKind, bool) {
	switch r {
	case ResultEmpty:
		return core.FindingEmpty, true
	case ResultNotInDictionary:
		return core.FindingNotInDictionary, true
	default:
		return "", false
	}
}

// CellOutcome is the verdict for one cell.
type CellOutcome struct {
	RowIndex   int
	Field      string
	Raw        any
	Normalized string
	Result     Result
}

// Passed reports whether the cell passed.
func (o CellOutcome) Passed() bool {
	return o.Result == ResultPass
}

// Lookuper resolves the allowed values of a field.
// *dictionary.Dictionary satisfies it.
type Lookuper interface {
	Lookup(field string) (dictionary.Allowed, bool)
}

// Validate classifies raw as the value of field.
//
// An empty normalized value is always ResultEmpty, whether or not the field
// is governed. A governed field with an enumeration rejects any value that is
// not an exact member. Everything else passes. RowIndex is left at zero.
func Validate(raw any, field string, dict Lookuper) CellOutcome {
	out := CellOutcome{
		Field:      field,
		Raw:        raw,
		Normalized: normalize.Normalize(raw),
	}

	if out.Normalized == "" {
		out.Result = ResultEmpty
		return out
	}

	if dict != nil {
		if allowed, ok := dict.Lookup(field); ok && !allowed.IsUnconstrained() && !allowed.Contains(out.Normalized) {
			out.Result = ResultNotInDictionary
			return out
		}
	}

	out.Result = ResultPass
	return out
}

// ValidateRow validates every governed column of the row in column order.
// Ungoverned columns are skipped.
func ValidateRow(row core.Row, dict Lookuper) []CellOutcome {
	if dict == nil {
		return nil
	}
	var outcomes []CellOutcome
	seen := make(map[string]struct{}, len(row.Columns))
	for _, col := range row.Columns {
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		if _, ok := dict.Lookup(col); !ok {
			continue
		}
		raw, _ := row.Get(col)
		out := Validate(raw, col, dict)
		out.RowIndex = row.Index
		outcomes = append(outcomes, out)
	}
	return outcomes
}
