// Package engine runs validation sessions: cell validation against a rule
// dictionary followed by group consistency checks, with progress logging,
// cancellation, optional parallel sharding and run history.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/dictionary"
	"github.com/leapstack-labs/leapcheck/pkg/report"
)

// ErrNoDictionary is returned when a session is built without a dictionary.
var ErrNoDictionary = errors.New("no rule dictionary")

// progressInterval is how many rows pass between progress records.
const progressInterval = 500

// minShardRows keeps small datasets on the sequential path.
const minShardRows = 1000

// Phases reported to Config.Progress.
const (
	PhaseCells  = "cells"
	PhaseGroups = "groups"
)

// ProgressFunc receives progress updates. It may be called from several
// goroutines when Workers > 1, but never concurrently.
type ProgressFunc func(phase string, done, total int)

// Config holds session configuration.
type Config struct {
	// Dictionary governs cell validation (required).
	Dictionary *dictionary.Dictionary
	// GroupKey is the column rows are grouped by. Empty disables group checks.
	GroupKey string
	// GroupFields are the columns that must agree within a group.
	GroupFields []string
	// Workers is the number of parallel cell-validation shards.
	Workers int
	// KeepBlankRows validates rows whose every value is empty.
	// By default such rows are skipped.
	KeepBlankRows bool
	// Progress is called as rows and groups are processed (optional).
	Progress ProgressFunc
	// Store records run history (optional).
	Store state.Store
	// Rules names the rule source in run history.
	Rules string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Session validates datasets with a fixed configuration.
// A Session is safe for concurrent use; each Run owns its own report.
type Session struct {
	dict        *dictionary.Dictionary
	groupKey    string
	groupFields []string
	workers     int
	keepBlank   bool
	progress    ProgressFunc
	store       state.Store
	rules       string
	logger      *slog.Logger
}

// New creates a session.
func New(cfg Config) (*Session, error) {
	if cfg.Dictionary == nil {
		return nil, ErrNoDictionary
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	logger.Debug("initializing session",
		slog.Int("fields", cfg.Dictionary.Len()),
		slog.String("group_key", cfg.GroupKey),
		slog.Int("group_fields", len(cfg.GroupFields)),
		slog.Int("workers", workers))

	return &Session{
		dict:        cfg.Dictionary,
		groupKey:    cfg.GroupKey,
		groupFields: cfg.GroupFields,
		workers:     workers,
		keepBlank:   cfg.KeepBlankRows,
		progress:    cfg.Progress,
		store:       cfg.Store,
		rules:       cfg.Rules,
		logger:      logger,
	}, nil
}

// Dictionary returns the session's rule dictionary.
func (s *Session) Dictionary() *dictionary.Dictionary {
	return s.dict
}

// Result is the outcome of one validation run.
type Result struct {
	// Snapshot holds statistics and findings.
	Snapshot report.Snapshot `json:"snapshot"`
	// Dataset is the dataset name.
	Dataset string `json:"dataset"`
	// RowsChecked counts rows submitted to validation.
	RowsChecked int `json:"rows_checked"`
	// BlankRows counts rows skipped because every value was empty.
	BlankRows int `json:"blank_rows"`
	// Groups counts key groups examined by the consistency check.
	Groups int `json:"groups"`
	// MissingFields lists dictionary fields absent from the dataset header.
	MissingFields []string `json:"missing_fields,omitempty"`
	// RunID identifies the run in history, when recorded.
	RunID string `json:"run_id,omitempty"`
	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration_ns"`

	lines map[int]int
}

// LineOf returns the source line of a row index, or RowIndex+1 when unknown.
func (r Result) LineOf(rowIndex int) int {
	if line, ok := r.lines[rowIndex]; ok {
		return line
	}
	return rowIndex + 1
}

// Exceeds reports whether any finding is at least as severe as threshold
// under the policy.
func (r Result) Exceeds(threshold core.Severity, policy core.SeverityPolicy) bool {
	for _, kind := range core.AllFindingKinds() {
		if r.Snapshot.Count(kind) > 0 && policy.For(kind).AtLeast(threshold) {
			return true
		}
	}
	return false
}
