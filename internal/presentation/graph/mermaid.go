package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Overlay marks the nodes a preview went through.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromTranscript builds an overlay from the node ids recorded in a transcript.
func OverlayFromTranscript(events []domain.Event, current string) *Overlay {
	o := &Overlay{CurrentNode: current}
	for _, ev := range events {
		if ev.NodeID != "" {
			o.VisitedNodes = append(o.VisitedNodes, ev.NodeID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a graph.
// Shapes follow the node kind:
//   - start: ((circle))
//   - input, question: [/parallelogram/]
//   - condition: {rhombus}
//   - action: [[subroutine]]
//   - message: [rectangle]
//
// Connections whose target is missing are drawn dotted to a placeholder node.
func GenerateMermaid(g domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, n := range g.Nodes {
		opener, closer := shape(n.Kind)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(n.ID), opener, label(n), closer)
	}

	for _, c := range g.Connections {
		if !g.HasNode(c.To) {
			fmt.Fprintf(&sb, "    %s -.-> %s[\"missing: %s\"]\n", mermaidID(c.From), mermaidID(c.To), escape(c.To))
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(c.From), mermaidID(c.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := mermaidID(id)
			if !seen[safeID] && safeID != "" && id != overlay.CurrentNode {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func shape(k domain.Kind) (string, string) {
	switch k {
	case domain.KindStart:
		return "((", "))"
	case domain.KindInput, domain.KindQuestion:
		return "[/", "/]"
	case domain.KindCondition:
		return "{", "}"
	case domain.KindAction:
		return "[[", "]]"
	default:
		return "[", "]"
	}
}

func label(n domain.Node) string {
	if n.Text == "" {
		return string(n.Kind)
	}
	return escape(n.Text)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", "<br/>")
}

// mermaidID turns an arbitrary id into a Mermaid-safe identifier.
// UUIDs start with digits and contain dashes, so every id gets a prefix.
func mermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return "n_" + r.Replace(id)
}
