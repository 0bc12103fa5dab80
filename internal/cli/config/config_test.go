package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/testutil"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/dictionary"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("rules", "", "")
	fs.String("sheet", "", "")
	fs.Int("header-row", 0, "")
	fs.String("group-key", "", "")
	fs.StringSlice("group-field", nil, "")
	fs.Int("workers", 1, "")
	fs.String("severity", "", "")
	fs.StringP("output", "o", "", "")
	fs.Bool("watch", false, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultRulesFile), cfg.Rules)
	assert.Equal(t, dictionary.DefaultSentinel, cfg.RequiredSentinel)
	assert.Equal(t, DefaultSheet, cfg.Source.Sheet)
	assert.Equal(t, DefaultGroupKey, cfg.Group.Key)
	assert.Equal(t, DefaultGroupFields(), cfg.Group.Fields)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(dir, DefaultHistoryFile), cfg.History.Path)
	assert.Equal(t, DefaultAddr, cfg.Serve.Addr)
	assert.Equal(t, DefaultMaxUploadMB, cfg.Serve.MaxUploadMB)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	policy, err := cfg.SeverityPolicy()
	require.NoError(t, err)
	assert.Equal(t, core.SeverityWarning, policy.For(core.FindingGroupMismatch))
}

func TestLoadConfig_FileSearchedUpward(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "leapcheck.yaml", `
rules: dict/字典.md
source:
  path: data/采集表.xlsx
  header_row: 3
group:
  key: "设备名称\n（必填）"
  fields: ["车间\n（必选）"]
severity:
  group_mismatch: error
workers: 4
history:
  enabled: true
`)
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "leapcheck.yaml"), GetConfigFileUsed())
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "dict", "字典.md"), cfg.Rules)
	assert.Equal(t, filepath.Join(root, "data", "采集表.xlsx"), cfg.Source.Path)
	assert.Equal(t, 3, cfg.Source.HeaderRow)
	assert.Equal(t, "设备名称\n（必填）", cfg.Group.Key)
	assert.Equal(t, []string{"车间\n（必选）"}, cfg.Group.Fields)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(root, DefaultHistoryFile), cfg.History.Path)

	policy, err := cfg.SeverityPolicy()
	require.NoError(t, err)
	assert.Equal(t, core.SeverityError, policy.For(core.FindingGroupMismatch))
	assert.Equal(t, core.SeverityError, policy.For(core.FindingEmpty))
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgFile := testutil.WriteFile(t, dir, "custom.yaml", "workers: 2\noutput: text\nsource:\n  sheet: FromFile\n")

	t.Setenv("LEAPCHECK_WORKERS", "3")
	t.Setenv("LEAPCHECK_SOURCE__SHEET", "FromEnv")
	t.Setenv("LEAPCHECK_GROUP__FIELDS", `车间\n（必选）,工段\n（必选）`)
	t.Setenv("LEAPCHECK_SOURCE__DSN", "postgres://${LEAPCHECK_TEST_USER}@localhost/db")
	t.Setenv("LEAPCHECK_TEST_USER", "checker")

	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--workers", "5", "--group-key", `设备\n名称`, "--watch"}))

	cfg, err := LoadConfig(cfgFile, flags)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Workers, "flags beat env")
	assert.Equal(t, "FromEnv", cfg.Source.Sheet, "env beats file")
	assert.Equal(t, "text", cfg.OutputFormat, "file beats defaults")
	assert.Equal(t, "设备\n名称", cfg.Group.Key, "escaped line breaks are unescaped")
	assert.Equal(t, []string{"车间\n（必选）", "工段\n（必选）"}, cfg.Group.Fields)
	assert.Equal(t, "postgres://checker@localhost/db", cfg.Source.DSN)
}

func TestLoadConfig_FlagPathsRelativeToWorkingDir(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "leapcheck.yaml", "rules: from-file.md\n")
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--rules", "local.md"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, "local.md"), cfg.Rules)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errStr  string
	}{
		{name: "workers", content: "workers: 0\n", errStr: "workers must be at least 1"},
		{name: "output", content: "output: html\n", errStr: "unknown output format"},
		{name: "severity", content: "severity:\n  empty: fatal\n", errStr: "invalid severity"},
		{name: "fail on", content: "fail_on: sometimes\n", errStr: "invalid fail_on"},
		{name: "source type", content: "source:\n  type: parquet\n", errStr: "unknown source type"},
		{name: "upload size", content: "serve:\n  max_upload_mb: 0\n", errStr: "max_upload_mb"},
		{name: "yaml", content: "workers: [\n", errStr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			path := testutil.WriteFile(t, dir, "leapcheck.yaml", tt.content)

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errStr)
		})
	}
}

func TestConfig_FailOnSeverity(t *testing.T) {
	sev, err := (&Config{}).FailOnSeverity()
	require.NoError(t, err)
	assert.Equal(t, core.SeverityError, sev)

	sev, err = (&Config{FailOn: "Warning"}).FailOnSeverity()
	require.NoError(t, err)
	assert.Equal(t, core.SeverityWarning, sev)
}

func TestConfig_SourceConfig(t *testing.T) {
	cfg := &Config{Source: SourceConfig{Type: "sql", Driver: "pgx", DSN: "dsn", Table: "t", HeaderRow: 2}}
	sc := cfg.SourceConfig()
	assert.Equal(t, "sql", sc.Type)
	assert.Equal(t, "pgx", sc.Driver)
	assert.Equal(t, "t", sc.Table)
	assert.Equal(t, 2, sc.HeaderRow)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := testutil.NewTestLogger(t)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Same(t, logger, ctx.Value(LoggerKey()))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEAPCHECK_TEST_HOST", "db.internal")
	assert.Equal(t, "host=db.internal", expandEnvVars("host=${LEAPCHECK_TEST_HOST}"))
	assert.Equal(t, "host=${LEAPCHECK_UNSET_VAR}", expandEnvVars("host=${LEAPCHECK_UNSET_VAR}"))
}

func TestConfigContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	cfg := &Config{Workers: 3}
	assert.Same(t, cfg, FromContext(WithConfig(context.Background(), cfg)))
}
