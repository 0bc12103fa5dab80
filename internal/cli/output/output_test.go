package output

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeText, false, ModeText},
		{ModeMarkdown, true, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode %q tty %v", tt.mode, tt.isTTY)
	}
}

func TestRenderer_TextWithoutTTYHasNoANSI(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	r.Header(1, "校验结果")
	r.Success("done")
	r.Warning("careful")
	r.StatusLine("采集表.xlsx", "success", "12 rows")

	assert.False(t, ansiPattern.MatchString(out.String()+errOut.String()))
	assert.Contains(t, out.String(), "校验结果")
	assert.Contains(t, out.String(), "✓ done")
	assert.Contains(t, out.String(), "采集表.xlsx 12 rows")
	assert.Contains(t, errOut.String(), "! careful")
}

func TestRenderer_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	r, out, _ := newTestRenderer(ModeText, true)
	r.Println(r.Styles().Error.Render("failed"))
	assert.Equal(t, "failed\n", out.String())
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeAuto, false)
	r.Header(2, "Summary")
	r.Muted("note")
	r.StatusLine("rules.md", "error", "missing")
	r.Error("boom")

	s := out.String()
	assert.Contains(t, s, "## Summary\n")
	assert.Contains(t, s, "_note_\n")
	assert.Contains(t, s, "- error **rules.md**: missing\n")
	assert.Equal(t, "> boom\n", errOut.String())
}

func TestRenderer_Table(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table([]string{"Field", "Fail"}, [][]string{{"状态", "1"}})
		assert.Contains(t, out.String(), "| Field | Fail |")
		assert.Contains(t, out.String(), "| 状态 | 1 |")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table([]string{"Field", "Fail"}, [][]string{{"状态", "1"}})
		assert.Contains(t, out.String(), "Field")
		assert.Contains(t, out.String(), "状态")
		assert.Contains(t, out.String(), "┌")
	})
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]string{"field": "<车间>"}))
	assert.Equal(t, "{\n  \"field\": \"<车间>\"\n}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Rows:** 12", FormatKeyValue("Rows", "12"))
	assert.Equal(t, "设备名称 （必填）", FieldLabel("设备名称\n（必填）"))
	assert.Equal(t, "a b", FieldLabel(" a\n\n b "))
	assert.Equal(t, "-", Quote(""))
	assert.Equal(t, `"车间1"`, Quote("车间1"))
	assert.True(t, strings.HasPrefix(Quote("\u3000x"), `"\u3000`))
}
