package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/graph"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// An empty style detects the terminal background.
func NewRenderer(style string) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// Describe writes a markdown summary of a flow.
func Describe(name, description string, start domain.State, c *graph.Collection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)
	if description != "" {
		fmt.Fprintf(&sb, "%s\n\n", strings.TrimSpace(description))
	}

	fmt.Fprintf(&sb, "- **Start:** `%s`\n", start)
	finals := c.FinalStates()
	names := make([]string, len(finals))
	for i, s := range finals {
		names[i] = fmt.Sprintf("`%s`", s)
	}
	fmt.Fprintf(&sb, "- **Final:** %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&sb, "- **States:** %d, **Transitions:** %d\n\n", len(c.States()), c.Len())

	sb.WriteString("## Transitions\n\n")
	sb.WriteString("| From | Event | To | Final |\n")
	sb.WriteString("|------|-------|----|-------|\n")
	for _, s := range c.States() {
		for _, t := range c.From(s) {
			final := ""
			if t.Final {
				final = "yes"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", t.From, t.Event, t.To, final)
		}
	}
	return sb.String()
}
