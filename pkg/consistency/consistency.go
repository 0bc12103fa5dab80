// Package consistency checks that rows sharing a key agree on dependent fields.
//
// Rows are grouped by the normalized value of a key field. Within each group
// every dependent field is put to a majority vote and each row holding a
// minority value is reported. When several values tie for the highest count
// the one that occurs first in row order wins.
package consistency

import (
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/normalize"
)

// GroupOutcome reports one row whose value disagrees with its group's majority.
type GroupOutcome struct {
	GroupKey string
	RowIndex int
	Field    string
	Value    string
	Majority string
	Mismatch bool
}

// Group is a set of rows sharing a normalized key, in source order.
type Group struct {
	Key  string
	Rows []core.Row
}

// GroupRows partitions rows by the normalized value of keyField.
// Groups are returned in order of first appearance. Rows without a value for
// the key share the empty-key group.
func GroupRows(rows []core.Row, keyField string) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, row := range rows {
		raw, _ := row.Get(keyField)
		key := normalize.Normalize(raw)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}

// CheckGroup votes on each field across the group's rows and returns one
// outcome per disagreeing row, ordered by field then row.
//
// Values are compared after trimming decorative whitespace at the ends only.
// Groups with fewer than two rows never disagree.
func CheckGroup(key string, rows []core.Row, fields []string) []GroupOutcome {
	if len(rows) <= 1 {
		return nil
	}

	var outcomes []GroupOutcome
	values := make([]string, len(rows))
	for _, field := range fields {
		for i, row := range rows {
			raw, _ := row.Get(field)
			values[i] = normalize.TrimDecorative(raw)
		}

		majority, unanimous := Majority(values)
		if unanimous {
			continue
		}

		for i, row := range rows {
			if values[i] == majority {
				continue
			}
			outcomes = append(outcomes, GroupOutcome{
				GroupKey: key,
				RowIndex: row.Index,
				Field:    field,
				Value:    values[i],
				Majority: majority,
				Mismatch: true,
			})
		}
	}
	return outcomes
}

// Majority returns the most frequent value and whether all values are equal.
// Ties go to the tied value that occurs first. An empty input is unanimous.
func Majority(values []string) (string, bool) {
	if len(values) == 0 {
		return "", true
	}

	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	if len(order) == 1 {
		return order[0], true
	}

	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, false
}

// Checker groups rows by KeyField and checks Fields in every group.
type Checker struct {
	KeyField string
	Fields   []string
}

// Check runs the consistency check over all rows.
func (c Checker) Check(rows []core.Row) []GroupOutcome {
	if c.KeyField == "" || len(c.Fields) == 0 {
		return nil
	}
	var outcomes []GroupOutcome
	for _, g := range GroupRows(rows, c.KeyField) {
		outcomes = append(outcomes, CheckGroup(g.Key, g.Rows, c.Fields)...)
	}
	return outcomes
}
