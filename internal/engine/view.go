package engine

import (
	"fmt"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/report"
)

// FindingView is one finding addressed by source line, with the severity
// assigned by a policy.
type FindingView struct {
	Kind       core.FindingKind `json:"kind"`
	Severity   core.Severity    `json:"severity"`
	Line       int              `json:"line"`
	RowIndex   int              `json:"row_index"`
	Field      string           `json:"field"`
	Raw        string           `json:"raw"`
	Normalized string           `json:"normalized,omitempty"`
	GroupKey   string           `json:"group_key,omitempty"`
	Majority   string           `json:"majority,omitempty"`
}

// KindCount is the number of findings of one kind.
type KindCount struct {
	Kind     core.FindingKind `json:"kind"`
	Severity core.Severity    `json:"severity"`
	Count    int              `json:"count"`
}

// View is the serializable form of a Result used by CLI and HTTP output.
type View struct {
	RunID         string                `json:"run_id,omitempty"`
	Dataset       string                `json:"dataset"`
	RowsChecked   int                   `json:"rows_checked"`
	BlankRows     int                   `json:"blank_rows"`
	Groups        int                   `json:"groups"`
	MissingFields []string              `json:"missing_fields,omitempty"`
	Fields        []report.FieldSummary `json:"fields"`
	Counts        []KindCount           `json:"counts"`
	Findings      []FindingView         `json:"findings"`
	TotalErrors   int                   `json:"total_errors"`
	DurationMS    int64                 `json:"duration_ms"`
	Failed        bool                  `json:"failed"`
}

// View converts the result. Failed is set when a finding reaches failOn
// under policy.
func (r Result) View(policy core.SeverityPolicy, failOn core.Severity) View {
	snap := r.Snapshot
	v := View{
		RunID:         r.RunID,
		Dataset:       r.Dataset,
		RowsChecked:   r.RowsChecked,
		BlankRows:     r.BlankRows,
		Groups:        r.Groups,
		MissingFields: r.MissingFields,
		Fields:        snap.Fields,
		Findings:      make([]FindingView, 0, snap.TotalErrorCount),
		TotalErrors:   snap.TotalErrorCount,
		DurationMS:    r.Duration.Milliseconds(),
		Failed:        r.Exceeds(failOn, policy),
	}
	if v.Fields == nil {
		v.Fields = []report.FieldSummary{}
	}

	for _, kind := range core.AllFindingKinds() {
		v.Counts = append(v.Counts, KindCount{Kind: kind, Severity: policy.For(kind), Count: snap.Count(kind)})
	}

	for _, e := range snap.CellErrors {
		v.Findings = append(v.Findings, FindingView{
			Kind:       e.Kind,
			Severity:   policy.For(e.Kind),
			Line:       r.LineOf(e.RowIndex),
			RowIndex:   e.RowIndex,
			Field:      e.Field,
			Raw:        rawString(e.Raw),
			Normalized: e.Normalized,
		})
	}
	for _, e := range snap.GroupErrors {
		v.Findings = append(v.Findings, FindingView{
			Kind:     core.FindingGroupMismatch,
			Severity: policy.For(core.FindingGroupMismatch),
			Line:     r.LineOf(e.RowIndex),
			RowIndex: e.RowIndex,
			Field:    e.Field,
			Raw:      e.Value,
			GroupKey: e.GroupKey,
			Majority: e.Majority,
		})
	}
	return v
}

func rawString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
