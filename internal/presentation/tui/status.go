package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/muesli/termenv"
)

// StatusLine formats a one-line summary of a run for w's color profile:
// sequence, progress and current step, or how the run ended.
func StatusLine(w io.Writer, snap domain.Snapshot) string {
	p := termenv.NewOutput(w).ColorProfile()

	done := 0
	for _, s := range snap.Steps {
		if s.Status == domain.StatusCompleted {
			done++
		}
	}

	var sb strings.Builder
	sb.WriteString(p.String(snap.Sequence).Bold().String())
	fmt.Fprintf(&sb, " [%d/%d]", done, len(snap.Steps))

	switch snap.Status {
	case domain.StatusInactive:
		sb.WriteString(" " + p.String("inactive").Faint().String())
	case domain.StatusStarted:
		sb.WriteString(" " + p.String("▶ "+snap.CurrentStep).Foreground(p.Color("#fbbf24")).String())
	case domain.StatusCompleted:
		if snap.Reason.Err() != nil {
			sb.WriteString(" " + p.String("✗ "+string(snap.Reason)).Foreground(p.Color("#f87171")).String())
		} else {
			sb.WriteString(" " + p.String("✓ "+string(snap.Reason)).Foreground(p.Color("#34d399")).String())
		}
	}
	return sb.String()
}
