package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/turnstile/pkg/domain"
)

// StackOverlay marks the position of a conversation on the graph.
type StackOverlay struct {
	Frames []domain.Frame
}

// OverlayFromStack builds an overlay for a stored stack. A nil or empty stack
// yields a nil overlay.
func OverlayFromStack(stack *domain.DialogStack) *StackOverlay {
	if stack == nil || stack.Empty() {
		return nil
	}
	return &StackOverlay{Frames: stack.Frames}
}

// GenerateMermaid produces a Mermaid flowchart of the given dialogs.
// Each dialog is a subgraph of its steps, in order. Shapes:
// - First step of the root dialog: ((Circle))
// - Prompt step: [/Parallelogram/]
// - Step that begins a child dialog: [[Subroutine]]
// - Default: [Rectangle]
// Calls into child dialogs are drawn as dotted edges.
func GenerateMermaid(dialogs []*domain.Dialog, root string, overlay *StackOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, d := range dialogs {
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", sanitizeMermaidID("dlg_"+d.ID), d.ID))
		for i, s := range d.Steps {
			opener, closer := "[", "]"
			switch {
			case d.ID == root && i == 0:
				opener, closer = "((", "))"
			case s.Kind == domain.StepPrompt:
				opener, closer = "[/", "/]"
			case s.Calls != "":
				opener, closer = "[[", "]]"
			}
			label := s.Name
			if s.Kind == domain.StepPrompt {
				if p, ok := d.Prompt(s.PromptID); ok {
					label = fmt.Sprintf("%s <br/> %s", s.Name, p.Input)
				}
			}
			sb.WriteString(fmt.Sprintf("        %s%s\"%s\"%s\n", nodeID(d.ID, s.Name), opener, label, closer))
		}
		sb.WriteString("    end\n")

		for i := 1; i < len(d.Steps); i++ {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodeID(d.ID, d.Steps[i-1].Name), nodeID(d.ID, d.Steps[i].Name)))
		}
	}

	byID := make(map[string]*domain.Dialog, len(dialogs))
	for _, d := range dialogs {
		byID[d.ID] = d
	}
	for _, d := range dialogs {
		for _, s := range d.Steps {
			if s.Calls == "" {
				continue
			}
			target, ok := byID[s.Calls]
			if !ok || len(target.Steps) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", nodeID(d.ID, s.Name), s.Calls, nodeID(target.ID, target.Steps[0].Name)))
		}
	}

	if overlay != nil {
		writeOverlay(&sb, byID, overlay)
	}

	return sb.String()
}

func writeOverlay(sb *strings.Builder, byID map[string]*domain.Dialog, overlay *StackOverlay) {
	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	last := len(overlay.Frames) - 1
	for i, f := range overlay.Frames {
		d, ok := byID[f.DialogID]
		if !ok {
			continue
		}
		for j := 0; j < f.StepIndex && j < len(d.Steps); j++ {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", nodeID(d.ID, d.Steps[j].Name)))
		}
		if f.StepIndex >= len(d.Steps) {
			continue
		}
		class := "visited"
		if i == last {
			class = "current"
		}
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", nodeID(d.ID, d.Steps[f.StepIndex].Name), class))
	}
}

func nodeID(dialogID, step string) string {
	return sanitizeMermaidID(dialogID + "__" + step)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
