package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// renderValidation writes a validation view. limit caps the findings listed
// per kind; zero lists all.
func renderValidation(r *output.Renderer, view engine.View, limit int) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(view)
	}

	r.Header(1, "Validation: "+filepath.Base(view.Dataset))

	if len(view.MissingFields) > 0 {
		labels := make([]string, len(view.MissingFields))
		for i, f := range view.MissingFields {
			labels[i] = output.FieldLabel(f)
		}
		r.Warning(fmt.Sprintf("%d dictionary fields are not in the header: %s",
			len(labels), strings.Join(labels, ", ")))
	}

	for _, kc := range view.Counts {
		if kc.Count == 0 {
			continue
		}
		renderFindings(r, view.Findings, kc, limit)
	}

	if len(view.Fields) > 0 {
		r.Header(2, "Field statistics")
		rows := make([][]string, 0, len(view.Fields))
		for _, f := range view.Fields {
			rows = append(rows, []string{
				output.FieldLabel(f.Field),
				strconv.Itoa(f.Total),
				strconv.Itoa(f.Pass),
				strconv.Itoa(f.Fail),
			})
		}
		r.Table([]string{"Field", "Total", "Pass", "Fail"}, rows)
	}

	renderSummary(r, view)
	return nil
}

func renderFindings(r *output.Renderer, findings []engine.FindingView, kc engine.KindCount, limit int) {
	r.Header(2, fmt.Sprintf("%s: %d (%s)", capitalizeFirst(kc.Kind.Label()), kc.Count, kc.Severity))

	var (
		header []string
		rows   [][]string
		shown  int
	)
	if kc.Kind == core.FindingGroupMismatch {
		header = []string{"Line", "Group", "Field", "Value", "Majority"}
	} else {
		header = []string{"Line", "Field", "Value", "Cleaned"}
	}

	for _, f := range findings {
		if f.Kind != kc.Kind {
			continue
		}
		if limit > 0 && shown >= limit {
			break
		}
		shown++

		line := strconv.Itoa(f.Line)
		if f.Kind == core.FindingGroupMismatch {
			rows = append(rows, []string{line, f.GroupKey, output.FieldLabel(f.Field), output.Quote(f.Raw), output.Quote(f.Majority)})
			continue
		}
		rows = append(rows, []string{line, output.FieldLabel(f.Field), output.Quote(f.Raw), output.Quote(f.Normalized)})
	}

	r.Table(header, rows)
	if shown < kc.Count {
		r.Muted(fmt.Sprintf("... and %d more", kc.Count-shown))
	}
}

func renderSummary(r *output.Renderer, view engine.View) {
	parts := make([]string, 0, len(view.Counts))
	for _, kc := range view.Counts {
		if kc.Count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", kc.Count, kc.Kind.Label()))
		}
	}
	total := strconv.Itoa(view.TotalErrors)
	if len(parts) > 0 {
		total += " (" + strings.Join(parts, ", ") + ")"
	}

	r.Header(2, "Summary")
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Rows checked", strconv.Itoa(view.RowsChecked)))
		r.Println(output.FormatKeyValue("Blank rows skipped", strconv.Itoa(view.BlankRows)))
		r.Println(output.FormatKeyValue("Groups", strconv.Itoa(view.Groups)))
		r.Println(output.FormatKeyValue("Findings", total))
		if view.RunID != "" {
			r.Println(output.FormatKeyValue("Run", view.RunID))
		}
		r.Println("")
	} else {
		s := r.Styles()
		r.Printf("  %s %d\n", s.Muted.Render("Rows checked:"), view.RowsChecked)
		r.Printf("  %s %d\n", s.Muted.Render("Blank rows skipped:"), view.BlankRows)
		r.Printf("  %s %d\n", s.Muted.Render("Groups:"), view.Groups)
		r.Printf("  %s %s\n", s.Muted.Render("Findings:"), total)
		if view.RunID != "" {
			r.Printf("  %s %s\n", s.Muted.Render("Run:"), view.RunID)
		}
		r.Println("")
	}

	switch {
	case view.TotalErrors == 0:
		r.Success(fmt.Sprintf("No issues found in %d rows", view.RowsChecked))
	case view.Failed:
		r.Println(r.Styles().Error.Render(fmt.Sprintf("✗ %d issues found", view.TotalErrors)))
	default:
		r.Println(r.Styles().Warning.Render(fmt.Sprintf("! %d issues found, none at the failing severity", view.TotalErrors)))
	}
}

// capitalizeFirst upper-cases the first letter of s.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
