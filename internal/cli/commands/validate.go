package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/source"
	"github.com/leapstack-labs/leapcheck/internal/watch"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// ErrValidationFailed is returned when findings reach the fail-on severity.
var ErrValidationFailed = errors.New("validation issues found")

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Format string // Output format: text, markdown, json
	Watch  bool   // Re-run when the source or rules change
	Limit  int    // Findings listed per kind in text and markdown output (0 = all)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:     "validate [file]",
		Aliases: []string{"check"},
		Short:   "Validate a collection table against the rule dictionary",
		Long: `Validate every governed cell of a workbook, CSV file or SQL table against
the rule dictionary, then check that rows sharing a device name agree on
their group fields.

Cells are compared after stripping whitespace and decorative characters.
Blank rows are skipped unless --keep-blank-rows is set.

The command exits non-zero when any finding reaches the --severity level
(error by default; group mismatches are warnings).

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Validate a workbook using leapcheck.yaml
  leapcheck validate 采集表.xlsx

  # Use another sheet and header row
  leapcheck validate 采集表.xlsx --sheet Sheet1 --header-row 1

  # Validate a GBK-encoded CSV export
  leapcheck validate export.csv --encoding gbk

  # Validate a database table
  leapcheck validate --type sql --driver pgx --dsn "$DATABASE_URL" --table assets

  # Fail on group mismatches too
  leapcheck validate 采集表.xlsx --severity warning

  # Re-run whenever the file or the rules change
  leapcheck validate 采集表.xlsx --watch

  # Output as JSON and record the run
  leapcheck validate 采集表.xlsx --format json --history`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.String("rules", "", "Rule dictionary file (markdown or yaml)")
	f.String("sentinel", "", "List item marking a field as required without fixed values")
	f.String("type", "", "Source type: xlsx, csv, sql (default: from extension)")
	f.String("sheet", "", "Worksheet name")
	f.Int("header-row", 0, "1-based header row (default: 2 for xlsx, 1 for csv)")
	f.String("encoding", "", "CSV character encoding (e.g. utf-8, gbk, gb18030)")
	f.String("driver", "", "SQL driver: pgx, sqlite, duckdb")
	f.String("dsn", "", "SQL data source name")
	f.String("query", "", "SQL query returning the rows to validate")
	f.String("table", "", "SQL table to validate")
	f.String("group-key", "", "Column that groups rows")
	f.StringSlice("group-field", nil, "Column that must agree within a group (repeatable)")
	f.Int("workers", 1, "Parallel validation workers")
	f.Bool("keep-blank-rows", false, "Validate rows whose cells are all empty")
	f.String("severity", "", "Fail when a finding is at least this severe: error, warning, info")
	f.Bool("history", false, "Record the run in history")
	f.String("history-path", "", "History database path")
	f.StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when the file or rules change")
	f.IntVar(&opts.Limit, "limit", 0, "Maximum findings listed per kind (0 = all)")

	_ = cmd.RegisterFlagCompletionFunc("severity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{source.TypeXLSX, source.TypeCSV, source.TypeSQL}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// validation is one configured validation, run once or on every change.
type validation struct {
	cmdCtx *CommandContext
	source source.Config
	policy core.SeverityPolicy
	failOn core.Severity
	opts   *ValidateOptions
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cmdCtx.UseFormat(cmd, opts.Format)
	cfg := cmdCtx.Cfg

	srcCfg := cfg.SourceConfig()
	if len(args) > 0 {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", args[0], err)
		}
		srcCfg.Path = path
		if srcCfg.Type == source.TypeSQL {
			srcCfg.Type = ""
		}
	}
	if srcCfg.Path == "" && srcCfg.Type != source.TypeSQL {
		return fmt.Errorf("no source given: pass a file or set source.path in leapcheck.yaml")
	}

	policy, err := cfg.SeverityPolicy()
	if err != nil {
		return err
	}
	failOn, err := cfg.FailOnSeverity()
	if err != nil {
		return err
	}

	v := &validation{cmdCtx: cmdCtx, source: srcCfg, policy: policy, failOn: failOn, opts: opts}
	if !opts.Watch {
		return v.run(cmd.Context())
	}
	return v.watch(cmd.Context())
}

// run loads the rules and the source, validates and renders the result.
func (v *validation) run(ctx context.Context) error {
	c := v.cmdCtx

	dict, err := c.LoadDictionary()
	if err != nil {
		return err
	}

	store, closeStore, err := c.OpenHistory(false)
	if err != nil {
		return err
	}
	defer closeStore()

	session, err := c.NewSession(dict, store, v.progress())
	if err != nil {
		return err
	}

	src, err := source.Open(v.source, c.Logger)
	if err != nil {
		return err
	}
	ds, err := src.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}

	res, err := session.Run(ctx, ds)
	v.clearProgress()
	if err != nil {
		return fmt.Errorf("validation interrupted: %w", err)
	}

	view := res.View(v.policy, v.failOn)
	if err := renderValidation(c.Renderer, view, v.opts.Limit); err != nil {
		return err
	}
	if view.Failed {
		return ErrValidationFailed
	}
	return nil
}

// watch runs once, then again after each change to the source or rules
// until the context is cancelled. Failures are reported, not returned.
func (v *validation) watch(ctx context.Context) error {
	c := v.cmdCtx
	files := []string{c.Cfg.Rules}
	if v.source.Type != source.TypeSQL {
		files = append(files, v.source.Path)
	}

	w, err := watch.New(files, 0, c.Logger)
	if err != nil {
		return err
	}

	v.runAndReport(ctx)
	c.Renderer.Muted("Watching for changes. Press Ctrl+C to stop.")

	return w.Run(ctx, func(path string) {
		c.Renderer.Println("")
		c.Renderer.Muted(fmt.Sprintf("%s changed, validating again", filepath.Base(path)))
		v.runAndReport(ctx)
	})
}

func (v *validation) runAndReport(ctx context.Context) {
	err := v.run(ctx)
	switch {
	case err == nil, errors.Is(err, ErrValidationFailed):
	case errors.Is(err, context.Canceled):
	default:
		v.cmdCtx.Logger.Debug("validation failed", slog.String("error", err.Error()))
		v.cmdCtx.Renderer.Error(err.Error())
	}
}

// progress returns a progress callback for interactive terminals only.
func (v *validation) progress() engine.ProgressFunc {
	r := v.cmdCtx.Renderer
	if !r.IsTTY() || r.EffectiveMode() != output.ModeText {
		return nil
	}
	return func(phase string, done, total int) {
		_, _ = fmt.Fprintf(r.ErrWriter(), "\r%s %d/%d", phase, done, total)
	}
}

func (v *validation) clearProgress() {
	r := v.cmdCtx.Renderer
	if r.IsTTY() && r.EffectiveMode() == output.ModeText {
		_, _ = fmt.Fprint(r.ErrWriter(), "\r\033[K")
	}
}
