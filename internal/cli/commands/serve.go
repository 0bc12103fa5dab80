package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve validation over HTTP",
		Long: `Start an HTTP server that validates uploaded workbooks and CSV files.

Endpoints:
  GET  /healthz         Liveness and number of governed fields
  GET  /v1/rules        The rule dictionary
  POST /v1/validate     Multipart upload: file, and optional sheet,
                        header_row and encoding fields
  GET  /v1/runs         Recorded runs (with history enabled)
  GET  /v1/runs/{id}    One run with its findings`,
		Example: `  # Serve on the default address
  leapcheck serve

  # Record runs and reload rules when the file changes
  leapcheck serve --addr :9090 --history --watch

  # Validate a file with curl
  curl -F file=@采集表.xlsx http://localhost:8080/v1/validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "Listen address")
	f.Int("max-upload-mb", 0, "Maximum upload size in MiB")
	f.String("rules", "", "Rule dictionary file (markdown or yaml)")
	f.String("sheet", "", "Default worksheet name")
	f.Int("header-row", 0, "Default 1-based header row")
	f.String("group-key", "", "Column that groups rows")
	f.StringSlice("group-field", nil, "Column that must agree within a group (repeatable)")
	f.Int("workers", 1, "Parallel validation workers per request")
	f.String("severity", "", "Mark a result failed when a finding is at least this severe")
	f.Bool("history", false, "Record runs in history")
	f.String("history-path", "", "History database path")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "Reload rules when the rule file changes")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	policy, err := cfg.SeverityPolicy()
	if err != nil {
		return err
	}
	failOn, err := cfg.FailOnSeverity()
	if err != nil {
		return err
	}

	store, closeStore, err := cmdCtx.OpenHistory(false)
	if err != nil {
		return err
	}
	defer closeStore()

	srcCfg := cfg.SourceConfig()
	srv, err := server.New(server.Config{
		Addr:           cfg.Serve.Addr,
		RulesPath:      cfg.Rules,
		Sentinel:       cfg.RequiredSentinel,
		GroupKey:       cfg.Group.Key,
		GroupFields:    cfg.Group.Fields,
		Workers:        cfg.Workers,
		KeepBlankRows:  cfg.KeepBlankRows,
		Source:         srcCfg,
		Policy:         policy,
		FailOn:         failOn,
		MaxUploadBytes: int64(cfg.Serve.MaxUploadMB) << 20,
		Store:          store,
		Watch:          opts.Watch,
		Logger:         cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	r := cmdCtx.Renderer
	r.Success(fmt.Sprintf("Serving validation on %s", cfg.Serve.Addr))
	r.StatusLine(filepath.Base(cfg.Rules), "success", fmt.Sprintf("%d fields", srv.Fields()))
	if store != nil {
		r.StatusLine("history", "success", cfg.History.Path)
	} else {
		r.StatusLine("history", "skipped", "disabled")
	}
	if opts.Watch {
		r.StatusLine("watch", "success", "rules reload on change")
	}
	r.Muted("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return srv.Serve(ctx)
}

