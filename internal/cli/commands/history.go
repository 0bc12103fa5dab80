package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit  int
	Format string
}

// RunDetailJSON is the JSON output for a single run.
type RunDetailJSON struct {
	*state.Run
	Findings []state.Finding `json:"findings"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded validation runs",
		Long: `List validation runs recorded with --history, newest first,
or show one run with its findings.`,
		Example: `  # List the last 20 runs
  leapcheck history

  # Show a run with its findings
  leapcheck history 6f1c2a9e-...

  # Output as JSON
  leapcheck history --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRun(cmd, args[0], opts)
			}
			return listRuns(cmd, opts)
		},
	}

	cmd.Flags().String("history-path", "", "History database path")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum runs to list (0 = all)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

func openHistoryFor(cmd *cobra.Command, format string) (*CommandContext, state.Store, func(), error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	cmdCtx.UseFormat(cmd, format)

	store, cleanup, err := cmdCtx.OpenHistory(true)
	if err != nil {
		return nil, nil, nil, err
	}
	return cmdCtx, store, cleanup, nil
}

func listRuns(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, store, cleanup, err := openHistoryFor(cmd, opts.Format)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	r.Header(1, "Validation History")
	if len(runs) == 0 {
		r.Muted("No runs recorded. Use 'leapcheck validate --history' to record one.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			filepath.Base(run.Source),
			string(run.Status),
			strconv.Itoa(run.Rows),
			strconv.Itoa(run.CellErrors),
			strconv.Itoa(run.GroupErrors),
		})
	}
	r.Table([]string{"Run", "Started", "Source", "Status", "Rows", "Cell errors", "Group errors"}, rows)
	return nil
}

func showRun(cmd *cobra.Command, id string, opts *HistoryOptions) error {
	cmdCtx, store, cleanup, err := openHistoryFor(cmd, opts.Format)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	findings, err := store.GetFindings(id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if findings == nil {
			findings = []state.Finding{}
		}
		return r.JSON(RunDetailJSON{Run: run, Findings: findings})
	}

	r.Header(1, "Run "+run.ID)
	kv := [][2]string{
		{"Source", run.Source},
		{"Rules", run.Rules},
		{"Status", string(run.Status)},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
	}
	if run.CompletedAt != nil {
		kv = append(kv, [2]string{"Duration", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()})
	}
	kv = append(kv,
		[2]string{"Rows", strconv.Itoa(run.Rows)},
		[2]string{"Cell errors", strconv.Itoa(run.CellErrors)},
		[2]string{"Group errors", strconv.Itoa(run.GroupErrors)},
	)
	if run.Error != "" {
		kv = append(kv, [2]string{"Error", run.Error})
	}
	for _, p := range kv {
		if r.EffectiveMode() == output.ModeMarkdown {
			r.Println(output.FormatKeyValue(p[0], p[1]))
		} else {
			r.Printf("  %s %s\n", r.Styles().Muted.Render(p[0]+":"), p[1])
		}
	}
	r.Println("")

	if len(findings) == 0 {
		return nil
	}

	r.Header(2, fmt.Sprintf("Findings (%d)", len(findings)))
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			strconv.Itoa(f.Line),
			f.Kind.Label(),
			output.FieldLabel(f.Field),
			output.Quote(f.Value),
			f.GroupKey,
			f.Majority,
		})
	}
	r.Table([]string{"Line", "Kind", "Field", "Value", "Group", "Majority"}, rows)
	return nil
}
