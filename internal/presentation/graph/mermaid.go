package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// GraphOverlay contains run state to visualize on the graph.
type GraphOverlay struct {
	VisitedSteps []string
	CurrentStep  string
}

// OverlayFromSnapshot marks completed steps as visited and the current step
// as current.
func OverlayFromSnapshot(snap domain.Snapshot) *GraphOverlay {
	o := &GraphOverlay{CurrentStep: snap.CurrentStep}
	for _, s := range snap.Steps {
		if s.Status == domain.StatusCompleted {
			o.VisitedSteps = append(o.VisitedSteps, s.ID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a definition.
// It applies semantic styling:
// - Entry: ((Circle))
// - Audio-only: [[Subroutine]]
// - Terminal (branching step without transitions): [/Parallelogram/]
// - Default: [Rectangle]
// Linear flows are drawn as a chain. Transitions to unknown steps are drawn
// dotted to a placeholder node.
func GenerateMermaid(def *domain.Definition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := def.Entry
	if def.Kind != domain.KindBranching && len(def.Steps) > 0 {
		entry = def.Steps[0].ID
	}

	known := make(map[string]bool, len(def.Steps))
	for _, s := range def.Steps {
		known[s.ID] = true
	}
	missing := make(map[string]bool)

	for i, step := range def.Steps {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.ID == entry:
			opener, closer = "((", "))"
		case step.AudioOnly:
			opener, closer = "[[", "]]"
		case def.Kind == domain.KindBranching && len(step.Transitions) == 0:
			opener, closer = "[/", "/]"
		}

		label := step.ID
		if step.Audio != nil && step.Audio.Clip.Name != "" {
			label = fmt.Sprintf("%s <br/> 🔊 %s", step.ID, escape(step.Audio.Clip.Name))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		if def.Kind != domain.KindBranching {
			if i+1 < len(def.Steps) {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, sanitizeMermaidID(def.Steps[i+1].ID))
			}
			continue
		}

		for _, t := range step.Transitions {
			safeTo := sanitizeMermaidID(t.To)
			text := edgeLabel(t)
			if !known[t.To] {
				if t.To == "" {
					safeTo = safeID + "_missing"
				}
				missing[safeTo] = true
				if text == "" {
					text = "missing"
				}
				fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", safeID, text, safeTo)
				continue
			}
			if text == "" {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, safeTo)
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, text, safeTo)
		}
	}

	if len(missing) > 0 {
		sb.WriteString("\n    classDef missing stroke-dasharray: 5 5,color:#b71c1c;\n")
		for _, s := range def.Steps {
			for _, t := range s.Transitions {
				id := sanitizeMermaidID(t.To)
				if t.To == "" {
					id = sanitizeMermaidID(s.ID) + "_missing"
				}
				if missing[id] {
					fmt.Fprintf(&sb, "    class %s missing;\n", id)
					delete(missing, id)
				}
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentStep != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

func edgeLabel(t domain.TransitionDef) string {
	var parts []string
	if c := t.When; c != nil {
		op, err := domain.ParseComparison(string(c.Op))
		symbol := string(c.Op)
		if err == nil {
			symbol = op.Symbol()
		}
		value := fmt.Sprint(c.Value)
		if s, ok := c.Value.(string); ok {
			value = "'" + s + "'"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", c.Var, symbol, value))
	}
	if t.Notify != "" {
		parts = append(parts, "📣 "+t.Notify)
	}
	return escape(strings.Join(parts, " <br/> "))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
