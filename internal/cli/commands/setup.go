package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/config"
	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/pkg/dictionary"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext gathers the config, logger and renderer for cmd.
// The root command stores a loaded config in the context; a command run on
// its own loads one from its flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		var err error
		cfg, err = config.LoadConfig("", cmd.Flags())
		if err != nil {
			return nil, err
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// UseFormat replaces the renderer when a per-command format is given.
func (c *CommandContext) UseFormat(cmd *cobra.Command, format string) {
	if format != "" {
		c.Renderer = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}
}

// LoadDictionary reads the configured rule source.
func (c *CommandContext) LoadDictionary() (*dictionary.Dictionary, error) {
	return engine.LoadDictionary(c.Cfg.Rules, c.Cfg.RequiredSentinel, c.Logger)
}

// OpenHistory opens the run history store. It returns a nil store when
// history is disabled. The cleanup function is always non-nil.
func (c *CommandContext) OpenHistory(force bool) (state.Store, func(), error) {
	if !c.Cfg.History.Enabled && !force {
		return nil, func() {}, nil
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.History.Path); err != nil {
		return nil, func() {}, fmt.Errorf("failed to open history: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, func() {}, fmt.Errorf("failed to migrate history: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// NewSession builds a validation session from the config.
func (c *CommandContext) NewSession(dict *dictionary.Dictionary, store state.Store, progress engine.ProgressFunc) (*engine.Session, error) {
	return engine.New(engine.Config{
		Dictionary:    dict,
		GroupKey:      c.Cfg.Group.Key,
		GroupFields:   c.Cfg.Group.Fields,
		Workers:       c.Cfg.Workers,
		KeepBlankRows: c.Cfg.KeepBlankRows,
		Progress:      progress,
		Store:         store,
		Rules:         c.Cfg.Rules,
		Logger:        c.Logger,
	})
}
