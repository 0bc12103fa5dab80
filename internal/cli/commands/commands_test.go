package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/testutil"
)

const testRules = `# 采集表字典

## 设备名称\n（必填）
- （此列为必填，但无固定枚举值）

## 车间\n（必选）
- 车间1
- 车间2

## 状态
- 启用
- 停用
- 报废
- 闲置
- 维修
- 借出
- 待检
`

// setupProject writes rules and a config into a temp dir and makes it the
// working directory.
func setupProject(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	testutil.WriteFile(t, dir, "rules.md", testRules)
	if config != "" {
		testutil.WriteFile(t, dir, "leapcheck.yaml", config)
	}
	return dir
}

// run executes cmd with args and returns stdout and stderr.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate [file]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.Contains(t, cmd.Aliases, "check")

	flags := []string{"rules", "sheet", "header-row", "encoding", "type", "driver", "dsn", "query", "table",
		"group-key", "group-field", "workers", "keep-blank-rows", "severity", "history", "format", "watch", "limit"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	flags := []string{"addr", "max-upload-mb", "rules", "history", "watch"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history [run-id]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("limit"))
}

func TestServeCommand_MissingRules(t *testing.T) {
	setupProject(t, "rules: missing.md\n")

	_, _, err := run(t, NewServeCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start server")
}

func TestNewCommandContext_InvalidConfig(t *testing.T) {
	setupProject(t, "workers: 0\n")

	_, _, err := run(t, NewRulesCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}
