package state

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/normalize"
	"github.com/leapstack-labs/leapcheck/pkg/report"
)

// FindingsOf flattens a snapshot into findings, cell errors first.
// lineOf maps a row index to its source line; nil uses RowIndex+1.
func FindingsOf(snap report.Snapshot, lineOf func(rowIndex int) int) []Finding {
	if lineOf == nil {
		lineOf = func(i int) int { return i + 1 }
	}

	findings := make([]Finding, 0, snap.TotalErrorCount)
	for _, e := range snap.CellErrors {
		findings = append(findings, Finding{
			Seq:      len(findings),
			Kind:     e.Kind,
			RowIndex: e.RowIndex,
			Line:     lineOf(e.RowIndex),
			Field:    e.Field,
			Value:    normalize.TrimDecorative(e.Raw),
		})
	}
	for _, e := range snap.GroupErrors {
		findings = append(findings, Finding{
			Seq:      len(findings),
			Kind:     core.FindingGroupMismatch,
			RowIndex: e.RowIndex,
			Line:     lineOf(e.RowIndex),
			Field:    e.Field,
			Value:    e.Value,
			GroupKey: e.GroupKey,
			Majority: e.Majority,
		})
	}
	return findings
}

// SaveFindings stores the findings of a run in one transaction.
func (s *SQLiteStore) SaveFindings(id string, findings []Finding) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO findings (run_id, seq, kind, row_index, line, field, value, group_key, majority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, f := range findings {
		if _, err := stmt.Exec(id, f.Seq, string(f.Kind), f.RowIndex, f.Line, f.Field, f.Value,
			nullString(f.GroupKey, f.Kind), nullString(f.Majority, f.Kind)); err != nil {
			return fmt.Errorf("failed to save finding %d: %w", f.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit findings: %w", err)
	}
	s.logger.Debug("saved findings", slog.String("run_id", id), slog.Int("count", len(findings)))
	return nil
}

// GetFindings returns the findings of a run in recorded order.
func (s *SQLiteStore) GetFindings(id string) ([]Finding, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT run_id, seq, kind, row_index, line, field, value, COALESCE(group_key, ''), COALESCE(majority, '')
		 FROM findings WHERE run_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []Finding
	for rows.Next() {
		var (
			f    Finding
			kind string
		)
		if err := rows.Scan(&f.RunID, &f.Seq, &kind, &f.RowIndex, &f.Line, &f.Field, &f.Value, &f.GroupKey, &f.Majority); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Kind = core.FindingKind(kind)
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	return findings, nil
}

// nullString stores group columns only for group findings.
func nullString(v string, kind core.FindingKind) any {
	if kind != core.FindingGroupMismatch {
		return nil
	}
	return v
}
