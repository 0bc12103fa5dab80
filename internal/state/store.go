// Package state persists validation run history in SQLite.
// It tracks each run's source, outcome counts and findings.
package state

import (
	"errors"
	"time"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/report"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a validation run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one recorded validation pass.
type Run struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Rules       string     `json:"rules"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Rows        int        `json:"rows"`
	CellErrors  int        `json:"cell_errors"`
	GroupErrors int        `json:"group_errors"`
	Error       string     `json:"error,omitempty"`
}

// RunSummary carries the counts stored when a run completes.
type RunSummary struct {
	Rows        int
	CellErrors  int
	GroupErrors int
}

// SummaryOf builds a RunSummary from a snapshot.
func SummaryOf(rows int, snap report.Snapshot) RunSummary {
	return RunSummary{
		Rows:        rows,
		CellErrors:  len(snap.CellErrors),
		GroupErrors: len(snap.GroupErrors),
	}
}

// Finding is one persisted cell or group error.
type Finding struct {
	RunID    string           `json:"run_id"`
	Seq      int              `json:"seq"`
	Kind     core.FindingKind `json:"kind"`
	RowIndex int              `json:"row_index"`
	Line     int              `json:"line"`
	Field    string           `json:"field"`
	Value    string           `json:"value"`
	GroupKey string           `json:"group_key,omitempty"`
	Majority string           `json:"majority,omitempty"`
}

// Store records validation runs.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(source, rules string) (*Run, error)
	CompleteRun(id string, summary RunSummary) error
	FailRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	SaveFindings(id string, findings []Finding) error
	GetFindings(id string) ([]Finding, error)
}
