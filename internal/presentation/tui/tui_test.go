package tui_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)

	out := buf.String()
	assert.Contains(t, out, `|____/ \__\___|`)
	assert.NotContains(t, out, "\x1b[", "a buffer has no color profile")
}

func TestStatusLine(t *testing.T) {
	snap := domain.Snapshot{
		Sequence:    "tour",
		Status:      domain.StatusStarted,
		CurrentStep: "b",
		Steps: []domain.StepState{
			{ID: "a", Status: domain.StatusCompleted},
			{ID: "b", Status: domain.StatusStarted},
			{ID: "c"},
		},
	}
	var buf bytes.Buffer
	assert.Equal(t, "tour [1/3] ▶ b", tui.StatusLine(&buf, snap))

	snap.Status = domain.StatusCompleted
	snap.Reason = domain.ReasonDeadEnd
	assert.Equal(t, "tour [1/3] ✗ dead_end", tui.StatusLine(&buf, snap))

	snap.Reason = domain.ReasonFinished
	assert.Equal(t, "tour [1/3] ✓ finished", tui.StatusLine(&buf, snap))

	snap.Status = domain.StatusInactive
	assert.Equal(t, "tour [1/3] inactive", tui.StatusLine(&buf, snap))
}

func TestRenderer_PlainOutsideTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, tui.IsTerminal(f))
	assert.Equal(t, 80, tui.Width(f))

	render := tui.NewRenderer(f)
	out, err := render("# Title")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)
}
