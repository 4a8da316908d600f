// Package graph renders transition collections as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowfsm/pkg/domain"
	fsm "github.com/aretw0/flowfsm/pkg/graph"
)

// Overlay contains runtime data of one context to highlight on the graph.
type Overlay struct {
	Visited []domain.State
	Current domain.State
}

// GenerateMermaid produces a Mermaid flowchart of c.
// Shapes:
// - Start: ((Circle))
// - Final: (((Double circle)))
// - Default: [Rectangle]
// Edges into a final state are drawn thick. Overlay styles are applied if provided.
func GenerateMermaid(c *fsm.Collection, start domain.State, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	states := c.States()
	if start != domain.NoState && !contains(states, start) {
		states = append([]domain.State{start}, states...)
	}

	for _, s := range states {
		opener, closer := "[", "]"
		switch {
		case s == start:
			opener, closer = "((", "))"
		case c.IsFinal(s):
			opener, closer = "(((", ")))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(string(s)), opener, escapeLabel(string(s)), closer)
	}

	for _, t := range c.Transitions() {
		label := escapeLabel(string(t.Event))
		var arrow string
		if t.Final {
			arrow = fmt.Sprintf("== \"%s\" ==>", label)
		} else {
			arrow = fmt.Sprintf("-- \"%s\" -->", label)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(string(t.From)), arrow, sanitizeMermaidID(string(t.To)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, s := range overlay.Visited {
			id := sanitizeMermaidID(string(s))
			if id == "" || seen[id] || s == overlay.Current {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", id)
		}
		if overlay.Current != domain.NoState {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Current)))
		}
	}

	return sb.String()
}

var idReplacer = strings.NewReplacer(
	".", "_",
	"-", "_",
	"/", "_",
	"\\", "_",
	" ", "_",
	":", "_",
	"\"", "_",
)

func sanitizeMermaidID(id string) string {
	return idReplacer.Replace(id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func contains(states []domain.State, s domain.State) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}
