package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/muesli/termenv"
)

// Styler colours CLI output for a terminal profile.
type Styler struct {
	p termenv.Profile
}

// NewStyler detects the colour profile of w.
func NewStyler(w io.Writer) *Styler {
	return &Styler{p: termenv.NewOutput(w).ColorProfile()}
}

// NewStylerWithProfile uses a fixed profile. termenv.Ascii disables colours.
func NewStylerWithProfile(p termenv.Profile) *Styler {
	return &Styler{p: p}
}

func (s *Styler) State(state domain.State) string {
	return s.p.String(string(state)).Foreground(s.p.Color("#38bdf8")).Bold().String()
}

func (s *Styler) Event(event domain.Event) string {
	return s.p.String(string(event)).Foreground(s.p.Color("#c084fc")).String()
}

func (s *Styler) Success(msg string) string {
	return s.p.String(msg).Foreground(s.p.Color("#4ade80")).String()
}

func (s *Styler) Error(msg string) string {
	return s.p.String(msg).Foreground(s.p.Color("#f87171")).Bold().String()
}

func (s *Styler) Faint(msg string) string {
	return s.p.String(msg).Faint().String()
}

// TraceHooks prints every lifecycle step of a run to w.
func TraceHooks(w io.Writer, s *Styler) domain.LifecycleHooks {
	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	return domain.LifecycleHooks{
		OnContextStart: func(_ context.Context, e *domain.StateEvent) {
			printf("%s %s\n", s.Faint("start  "), s.State(e.State))
		},
		OnEventTrigger: func(_ context.Context, e *domain.TriggerEvent) {
			printf("%s %s: %s -> %s\n", s.Faint("event  "), s.Event(e.Event), s.State(e.From), s.State(e.To))
		},
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			printf("%s %s\n", s.Faint("enter  "), s.State(e.State))
		},
		OnStateLeave: func(_ context.Context, e *domain.StateEvent) {
			printf("%s %s\n", s.Faint("leave  "), s.State(e.State))
		},
		OnContextEnd: func(_ context.Context, e *domain.StateEvent) {
			printf("%s %s\n", s.Success("done   "), s.State(e.State))
		},
		OnError: func(_ context.Context, e *domain.ErrorEvent) {
			printf("%s %s in %s: %s\n", s.Error("error  "), e.Phase, s.State(e.State), e.Error)
		},
	}
}
