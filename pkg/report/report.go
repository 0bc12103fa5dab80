// Package report accumulates validation outcomes into per-field statistics
// and addressable error lists.
//
// A Report is owned by a single validation pass and is not safe for
// concurrent mutation. Parallel passes record into one Report per shard and
// combine the shard snapshots with Merge.
package report

import (
	"slices"

	"github.com/leapstack-labs/leapcheck/pkg/consistency"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/validate"
)

// FieldStats counts outcomes for one field.
type FieldStats struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
}

// FieldSummary pairs a field with its statistics.
type FieldSummary struct {
	Field string `json:"field"`
	FieldStats
}

// CellError addresses a cell that failed validation.
type CellError struct {
	RowIndex   int              `json:"row_index"`
	Field      string           `json:"field"`
	Kind       core.FindingKind `json:"kind"`
	Raw        any              `json:"raw"`
	Normalized string           `json:"normalized"`
}

// GroupError addresses a cell that disagrees with its group's majority.
type GroupError struct {
	GroupKey string `json:"group_key"`
	RowIndex int    `json:"row_index"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Majority string `json:"majority"`
}

// Snapshot is an immutable copy of a report's state.
type Snapshot struct {
	Fields          []FieldSummary `json:"fields"`
	CellErrors      []CellError    `json:"cell_errors"`
	GroupErrors     []GroupError   `json:"group_errors"`
	TotalErrorCount int            `json:"total_error_count"`
}

// Stats returns the statistics recorded for a field.
func (s Snapshot) Stats(field string) (FieldStats, bool) {
	for _, f := range s.Fields {
		if f.Field == field {
			return f.FieldStats, true
		}
	}
	return FieldStats{}, false
}

// HasErrors reports whether any cell or group error was recorded.
func (s Snapshot) HasErrors() bool {
	return s.TotalErrorCount > 0
}

// Count returns the number of errors of the given kind.
func (s Snapshot) Count(kind core.FindingKind) int {
	if kind == core.FindingGroupMismatch {
		return len(s.GroupErrors)
	}
	n := 0
	for _, e := range s.CellErrors {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Report accumulates outcomes.
type Report struct {
	fields      []string
	stats       map[string]*FieldStats
	cellErrors  []CellError
	groupErrors []GroupError
}

// New creates an empty report.
func New() *Report {
	return &Report{stats: make(map[string]*FieldStats)}
}

func (r *Report) field(name string) *FieldStats {
	st, ok := r.stats[name]
	if !ok {
		st = &FieldStats{}
		r.stats[name] = st
		r.fields = append(r.fields, name)
	}
	return st
}

// RecordCell counts a cell outcome and records an error when it did not pass.
func (r *Report) RecordCell(o validate.CellOutcome) {
	st := r.field(o.Field)
	st.Total++

	kind, failed := o.Result.Kind()
	if !failed {
		st.Pass++
		return
	}
	st.Fail++
	r.cellErrors = append(r.cellErrors, CellError{
		RowIndex:   o.RowIndex,
		Field:      o.Field,
		Kind:       kind,
		Raw:        o.Raw,
		Normalized: o.Normalized,
	})
}

// RecordGroupOutcome records a group mismatch. Only the field's fail counter
// moves: the cell was already counted by the cell pass.
func (r *Report) RecordGroupOutcome(o consistency.GroupOutcome) {
	if !o.Mismatch {
		return
	}
	r.field(o.Field).Fail++
	r.groupErrors = append(r.groupErrors, GroupError{
		GroupKey: o.GroupKey,
		RowIndex: o.RowIndex,
		Field:    o.Field,
		Value:    o.Value,
		Majority: o.Majority,
	})
}

// Merge folds a snapshot into the report. Counters are added and error lists
// appended, so merging shard snapshots in shard order reproduces a
// sequential pass.
func (r *Report) Merge(s Snapshot) {
	for _, f := range s.Fields {
		st := r.field(f.Field)
		st.Total += f.Total
		st.Pass += f.Pass
		st.Fail += f.Fail
	}
	r.cellErrors = append(r.cellErrors, s.CellErrors...)
	r.groupErrors = append(r.groupErrors, s.GroupErrors...)
}

// Snapshot returns a copy of the current state.
func (r *Report) Snapshot() Snapshot {
	fields := make([]FieldSummary, 0, len(r.fields))
	for _, name := range r.fields {
		fields = append(fields, FieldSummary{Field: name, FieldStats: *r.stats[name]})
	}
	return Snapshot{
		Fields:          fields,
		CellErrors:      slices.Clone(r.cellErrors),
		GroupErrors:     slices.Clone(r.groupErrors),
		TotalErrorCount: len(r.cellErrors) + len(r.groupErrors),
	}
}
