package handlers_test

import (
	"errors"
	"testing"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/handlers"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_Dispatch(t *testing.T) {
	c := domain.NewContext(domain.WithID("ctx"))

	t.Run("Specific before any", func(t *testing.T) {
		r := handlers.NewRegistry()
		var calls []string
		r.OnAnyEnter(func(s domain.State, _ *domain.Context) error {
			calls = append(calls, "any:"+string(s))
			return nil
		})
		r.OnEnter("A", func(s domain.State, _ *domain.Context) error {
			calls = append(calls, "A")
			return nil
		})

		assert.NoError(t, r.Entered("A", c))
		assert.NoError(t, r.Entered("B", c))
		assert.Equal(t, []string{"A", "any:A", "any:B"}, calls)
	})

	t.Run("First error stops dispatch", func(t *testing.T) {
		r := handlers.NewRegistry()
		boom := errors.New("boom")
		anyCalled := false
		r.OnLeave("A", func(domain.State, *domain.Context) error { return boom })
		r.OnAnyLeave(func(domain.State, *domain.Context) error {
			anyCalled = true
			return nil
		})

		assert.ErrorIs(t, r.Left("A", c), boom)
		assert.False(t, anyCalled)
	})

	t.Run("Re-registration replaces", func(t *testing.T) {
		r := handlers.NewRegistry()
		var got string
		r.OnEvent("go", func(domain.Event, domain.State, domain.State, *domain.Context) error {
			got = "first"
			return nil
		})
		r.OnEvent("go", func(e domain.Event, from, to domain.State, _ *domain.Context) error {
			got = string(e) + ":" + string(from) + "->" + string(to)
			return nil
		})

		assert.NoError(t, r.Triggered("go", "A", "B", c))
		assert.Equal(t, "go:A->B", got)
	})

	t.Run("Error and final", func(t *testing.T) {
		r := handlers.NewRegistry()
		assert.False(t, r.Failed(&domain.ExecutionError{}))
		assert.NoError(t, r.Finished("END", c))

		var seen *domain.ExecutionError
		r.OnError(func(err *domain.ExecutionError) { seen = err })
		r.OnFinal(func(domain.State, *domain.Context) error { return errors.New("final") })

		execErr := &domain.ExecutionError{Phase: domain.PhaseEnter, State: "A"}
		assert.True(t, r.Failed(execErr))
		assert.Same(t, execErr, seen)
		assert.EqualError(t, r.Finished("END", c), "final")
	})
}
