package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevOut, prevErr, prevNoColor := stdout, stderr, color.NoColor
	SetOutput(&out, &errOut)
	color.NoColor = true
	t.Cleanup(func() {
		SetOutput(prevOut, prevErr)
		color.NoColor = prevNoColor
	})
	return &out, &errOut
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{4 * time.Second, "4s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute + 7*time.Second, "2h 5m 7s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "2.0 MiB", FormatBytes(2*1024*1024))
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Metric", "Value"}, [][]string{
		{"Records", "3"},
		{"Output"},
	}, 1)

	assert.Contains(t, out, "Metric")
	assert.NotContains(t, out, "METRIC")
	assert.Contains(t, out, "Records")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "Output")
	assert.Empty(t, RenderTable(nil, nil))
}

func TestMessages(t *testing.T) {
	out, errOut := captureOutput(t)
	verboseFlag = false

	Success("saved %d records", 2)
	Warning("no data")
	Info("model %s", "gpt-4o")
	Debug("hidden")
	Section("Summary")

	assert.Contains(t, out.String(), "✓ saved 2 records")
	assert.Contains(t, out.String(), "⚠ no data")
	assert.Contains(t, out.String(), "ℹ model gpt-4o")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "Summary\n=======")
	assert.Empty(t, errOut.String())
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "  • a\n  • b\n", FormatList([]string{"a", "b"}))
}
