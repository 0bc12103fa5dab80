package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type code string

func (c code) String() string { return "code-" + string(c) }

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "启用", "启用"},
		{"bytes", []byte("abc"), "abc"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64 negative", int64(-7), "-7"},
		{"uint8", uint8(3), "3"},
		{"float whole", 1.0, "1"},
		{"float fraction", 200.5, "200.5"},
		{"float32", float32(0.25), "0.25"},
		{"NaN", math.NaN(), ""},
		{"date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"datetime", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), "2024-03-01T08:30:00Z"},
		{"zero time", time.Time{}, ""},
		{"stringer", code("x"), "code-x"},
		{"fallback", []int{1, 2}, "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"plain", "启用", "启用"},
		{"full-width spaces around", "\u3000启用\u3000", "启用"},
		{"ascii spaces around", "  启用 ", "启用"},
		{"mixed decoration", " \t\u3000启用\r\n", "启用"},
		{"interior line break", "车间\n1", "车间1"},
		{"interior full-width space", "一\u3000号", "一号"},
		{"interior ascii space kept", "Line 1", "Line 1"},
		{"no-break space kept", "\u00a0启用", "\u00a0启用"},
		{"only decoration", " \u3000\n\t ", ""},
		{"nil", nil, ""},
		{"number", 3, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestTrimDecorative(t *testing.T) {
	assert.Equal(t, "车间1", TrimDecorative(" 车间1\u3000"))
	assert.Equal(t, "车间\n1", TrimDecorative("车间\n1"), "interior characters are kept")
	assert.Equal(t, "", TrimDecorative(nil))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank("\u3000\n"))
	assert.False(t, IsBlank("0"))
	assert.False(t, IsBlank(0))
}
