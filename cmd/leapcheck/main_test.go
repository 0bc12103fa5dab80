package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/cli"
	"github.com/leapstack-labs/leapcheck/internal/cli/commands"
	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/testutil"
)

const rules = `## 设备名称\n（必填）
- （此列为必填，但无固定枚举值）

## 车间\n（必选）
- 车间1
- 车间2
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapcheck v")
}

func TestHelpCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, expected := range []string{"validate", "rules", "history", "serve", "completion"} {
		assert.Contains(t, out, expected)
	}
}

func TestValidateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	testutil.WriteFile(t, dir, "rules.md", rules)
	testutil.WriteFile(t, dir, "leapcheck.yaml", "group:\n  fields: [\"车间\\n（必选）\"]\nhistory:\n  enabled: true\n")
	csv := testutil.WriteFile(t, dir, "采集表.csv",
		"\"设备名称\n（必填）\",\"车间\n（必选）\"\n设备A,车间1\n设备A,车间3\n设备A,车间1\n")

	out, err := execute(t, "validate", csv, "-o", "json")
	require.ErrorIs(t, err, commands.ErrValidationFailed)

	var view engine.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 3, view.RowsChecked)
	assert.NotEmpty(t, view.RunID)
	require.Len(t, view.Findings, 2)
	assert.Equal(t, 4, view.Findings[0].Line, "quoted header spans two lines")

	out, err = execute(t, "history", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, view.RunID)
}

func TestCompletionCommand(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapcheck")
}
