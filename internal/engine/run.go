package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/pkg/consistency"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/normalize"
	"github.com/leapstack-labs/leapcheck/pkg/report"
	"github.com/leapstack-labs/leapcheck/pkg/validate"
)

// Run validates a dataset. Cell validation covers every dictionary field
// present in the header; the group check runs afterwards over the same rows.
//
// When ctx is cancelled Run stops between rows or groups and returns the
// partial result together with ctx.Err().
func (s *Session) Run(ctx context.Context, ds *core.Dataset) (Result, error) {
	start := time.Now()
	if ds == nil {
		ds = &core.Dataset{}
	}

	res := Result{Dataset: ds.Name, lines: make(map[int]int, ds.Len())}
	for _, row := range ds.Rows {
		res.lines[row.Index] = row.Line
	}

	s.logger.Info("starting validation", slog.String("dataset", ds.Name), slog.Int("rows", ds.Len()))

	var runID string
	if s.store != nil {
		run, err := s.store.CreateRun(ds.Name, s.rules)
		if err != nil {
			s.logger.Warn("failed to record run", slog.String("error", err.Error()))
		} else {
			runID = run.ID
			res.RunID = runID
			s.logger.Debug("created run", slog.String("run_id", runID))
		}
	}

	rows := s.selectRows(ds, &res)
	for _, field := range s.dict.Fields() {
		if !ds.HasColumn(field) {
			res.MissingFields = append(res.MissingFields, field)
		}
	}
	if len(res.MissingFields) > 0 {
		s.logger.Debug("dictionary fields not in dataset", slog.Any("fields", res.MissingFields))
	}

	rep := report.New()
	err := s.checkCells(ctx, rows, rep)
	if err == nil {
		err = s.checkGroups(ctx, ds, rows, rep, &res)
	}

	res.Snapshot = rep.Snapshot()
	res.Duration = time.Since(start)

	if err != nil {
		s.logger.Info("validation interrupted",
			slog.String("dataset", ds.Name),
			slog.Int("errors_so_far", res.Snapshot.TotalErrorCount),
			slog.String("error", err.Error()))
		s.failRun(runID, err)
		return res, err
	}

	s.logger.Info("validation completed",
		slog.String("dataset", ds.Name),
		slog.Int("rows", res.RowsChecked),
		slog.Int("cell_errors", len(res.Snapshot.CellErrors)),
		slog.Int("group_errors", len(res.Snapshot.GroupErrors)),
		slog.Duration("duration", res.Duration))
	s.completeRun(runID, res)
	return res, nil
}

// selectRows drops blank rows unless configured to keep them.
func (s *Session) selectRows(ds *core.Dataset, res *Result) []core.Row {
	if s.keepBlank {
		res.RowsChecked = ds.Len()
		return ds.Rows
	}

	rows := make([]core.Row, 0, ds.Len())
	for _, row := range ds.Rows {
		if isBlank(row) {
			res.BlankRows++
			continue
		}
		rows = append(rows, row)
	}
	res.RowsChecked = len(rows)
	if res.BlankRows > 0 {
		s.logger.Debug("skipped blank rows", slog.Int("count", res.BlankRows))
	}
	return rows
}

func isBlank(row core.Row) bool {
	for _, v := range row.Values {
		if !normalize.IsBlank(v) {
			return false
		}
	}
	return true
}

// checkCells validates rows sequentially or in contiguous shards.
func (s *Session) checkCells(ctx context.Context, rows []core.Row, rep *report.Report) error {
	s.logger.Info("checking cells", slog.Int("rows", len(rows)), slog.Int("workers", s.workers))

	if s.workers <= 1 || len(rows) < minShardRows {
		return s.validateRows(ctx, rows, rep, s.reportProgress)
	}
	return s.validateShards(ctx, rows, rep)
}

// validateRows records every governed cell of rows into rep.
func (s *Session) validateRows(ctx context.Context, rows []core.Row, rep *report.Report, progress func(done, total int)) error {
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, out := range validate.ValidateRow(row, s.dict) {
			rep.RecordCell(out)
		}
		if done := i + 1; done%progressInterval == 0 || done == len(rows) {
			progress(done, len(rows))
		}
	}
	return nil
}

func (s *Session) reportProgress(done, total int) {
	s.logger.Debug("cell progress", slog.Int("done", done), slog.Int("total", total))
	if s.progress != nil {
		s.progress(PhaseCells, done, total)
	}
}

// validateShards splits rows into one contiguous shard per worker and
// merges shard snapshots in shard order, so findings keep row order.
func (s *Session) validateShards(ctx context.Context, rows []core.Row, rep *report.Report) error {
	size := (len(rows) + s.workers - 1) / s.workers
	var shards [][]core.Row
	for lo := 0; lo < len(rows); lo += size {
		shards = append(shards, rows[lo:min(lo+size, len(rows))])
	}

	reports := make([]*report.Report, len(shards))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		reports[i] = report.New()
		last := 0
		g.Go(func() error {
			return s.validateRows(gctx, shard, reports[i], func(n, _ int) {
				mu.Lock()
				defer mu.Unlock()
				done += n - last
				last = n
				s.reportProgress(done, len(rows))
			})
		})
	}
	err := g.Wait()

	for _, r := range reports {
		rep.Merge(r.Snapshot())
	}
	if err != nil {
		// Shards only fail through the context; report the caller's cause.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

// checkGroups runs the consistency check when the key column exists.
func (s *Session) checkGroups(ctx context.Context, ds *core.Dataset, rows []core.Row, rep *report.Report, res *Result) error {
	if s.groupKey == "" {
		return nil
	}
	if !ds.HasColumn(s.groupKey) {
		s.logger.Warn("group key column not found, skipping consistency check", slog.String("column", s.groupKey))
		return nil
	}

	var fields []string
	for _, f := range s.groupFields {
		if ds.HasColumn(f) {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		s.logger.Warn("no group fields present, skipping consistency check")
		return nil
	}

	groups := consistency.GroupRows(rows, s.groupKey)
	res.Groups = len(groups)
	s.logger.Info("checking group consistency", slog.Int("groups", len(groups)), slog.Int("fields", len(fields)))

	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, out := range consistency.CheckGroup(g.Key, g.Rows, fields) {
			rep.RecordGroupOutcome(out)
		}
		if s.progress != nil {
			s.progress(PhaseGroups, i+1, len(groups))
		}
	}
	return nil
}

func (s *Session) completeRun(runID string, res Result) {
	if s.store == nil || runID == "" {
		return
	}
	if err := s.store.SaveFindings(runID, state.FindingsOf(res.Snapshot, res.LineOf)); err != nil {
		s.logger.Warn("failed to save findings", slog.String("run_id", runID), slog.String("error", err.Error()))
	}
	if err := s.store.CompleteRun(runID, state.SummaryOf(res.RowsChecked, res.Snapshot)); err != nil {
		s.logger.Warn("failed to complete run", slog.String("run_id", runID), slog.String("error", err.Error()))
	}
}

func (s *Session) failRun(runID string, cause error) {
	if s.store == nil || runID == "" {
		return
	}
	status := state.RunStatusFailed
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		status = state.RunStatusCancelled
	}
	if err := s.store.FailRun(runID, status, cause.Error()); err != nil {
		s.logger.Warn("failed to record run failure", slog.String("run_id", runID), slog.String("error", err.Error()))
	}
}
