package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/flowfsm/internal/runtime"
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/executor"
	"github.com/aretw0/flowfsm/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestEngine_CallbackOrder(t *testing.T) {
	for name, x := range map[string]func() ports.Executor{
		"Serial": func() ports.Executor { return executor.NewSerial() },
		"Pool":   func() ports.Executor { return executor.NewPool(4) },
		"Inline": func() ports.Executor { return executor.NewInline() },
	} {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t, linearFlow(), runtime.WithExecutor(x()))
			rec := &recorder{}
			done := make(chan struct{})

			h := engine.Handlers()
			h.OnAnyEnter(func(s domain.State, c *domain.Context) error {
				rec.add("enter " + string(s))
				switch s {
				case "A":
					_, err := c.Trigger("e1")
					return err
				case "B":
					_, err := c.Trigger("e2")
					return err
				}
				return nil
			})
			h.OnAnyLeave(func(s domain.State, _ *domain.Context) error {
				rec.add("leave " + string(s))
				return nil
			})
			h.OnFinal(func(s domain.State, c *domain.Context) error {
				assert.True(t, c.IsTerminated(), "final handler must observe termination")
				rec.add("final " + string(s))
				close(done)
				return nil
			})

			c := domain.NewContext()
			require.NoError(t, engine.Start(c, false))
			waitFor(t, done)

			assert.Equal(t, []string{"enter A", "leave A", "enter B", "leave B", "enter C", "final C"}, rec.list())
			assert.Equal(t, domain.State("C"), c.State())
			assert.NoError(t, c.Wait(context.Background()))
		})
	}
}

func TestEngine_InlineCompletesBeforeStartReturns(t *testing.T) {
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
	engine.Handlers().OnAnyEnter(func(s domain.State, c *domain.Context) error {
		if s == "A" {
			c.SafeTrigger("e1")
		}
		return nil
	})

	c := domain.NewContext()
	require.NoError(t, engine.Start(c, false))
	assert.Equal(t, domain.State("B"), c.State())
	assert.False(t, c.IsTerminated())

	ok, err := engine.Trigger("e2", c)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, c.IsTerminated())
}

func TestEngine_SafeVsStrictTrigger(t *testing.T) {
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
	c := domain.NewContext(domain.WithID("ctx-1"))

	t.Run("Before start", func(t *testing.T) {
		_, err := engine.Trigger("e1", c)
		assert.ErrorIs(t, err, domain.ErrNotStarted)
		assert.False(t, engine.SafeTrigger("e1", c))
	})

	require.NoError(t, engine.Start(c, false))

	t.Run("Strict trigger raises", func(t *testing.T) {
		ok, err := engine.Trigger("x", c)
		assert.False(t, ok)

		var violation *domain.LogicViolationError
		require.True(t, errors.As(err, &violation))
		assert.ErrorIs(t, err, domain.ErrInvalidEvent)
		assert.Equal(t, domain.Event("x"), violation.Event)
		assert.Equal(t, domain.State("A"), violation.State)
		assert.Equal(t, "ctx-1", violation.ContextID)
	})

	t.Run("Safe trigger reports false", func(t *testing.T) {
		assert.False(t, engine.SafeTrigger("x", c))
		assert.Equal(t, domain.State("A"), c.State())
	})

	t.Run("Condition trigger guards the state", func(t *testing.T) {
		ok, err := engine.ConditionTrigger("e1", c, "B")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, domain.State("A"), c.State())

		ok, err = engine.ConditionTrigger("e1", c, "A")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.State("B"), c.State())
	})

	t.Run("Terminated context ignores triggers", func(t *testing.T) {
		assert.True(t, engine.SafeTrigger("e2", c))
		require.True(t, c.IsTerminated())

		ok, err := engine.Trigger("e2", c)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, engine.Start(c, false), domain.ErrTerminated)
	})
}

func TestEngine_ConcurrentTriggersChangeStateOnce(t *testing.T) {
	pool := executor.NewPool(8)
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(pool))

	rec := &recorder{}
	engine.Handlers().OnEnter("B", func(domain.State, *domain.Context) error {
		rec.add("enter B")
		return nil
	})
	engine.Handlers().OnLeave("A", func(domain.State, *domain.Context) error {
		rec.add("leave A")
		return nil
	})
	started := make(chan struct{})
	engine.Handlers().OnEnter("A", func(domain.State, *domain.Context) error {
		close(started)
		return nil
	})

	c := domain.NewContext()
	require.NoError(t, engine.Start(c, false))
	waitFor(t, started)

	const n = 50
	gate := make(chan struct{})
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			<-gate
			results <- engine.SafeTrigger("e1", c)
		}()
	}
	close(gate)

	accepted := 0
	for i := 0; i < n; i++ {
		if <-results {
			accepted++
		}
	}
	pool.Close()

	assert.GreaterOrEqual(t, accepted, 1)
	assert.Equal(t, []string{"leave A", "enter B"}, rec.list())
	assert.Equal(t, domain.State("B"), c.State())
}

func TestEngine_LostStateChange(t *testing.T) {
	// every state accepts tick until D
	def := tickFlow()

	t.Run("Retried against the current state", func(t *testing.T) {
		x := &manualExecutor{}
		engine := newEngine(t, def, runtime.WithExecutor(x))
		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))
		x.runAll()

		require.True(t, engine.SafeTrigger("tick", c))
		require.True(t, engine.SafeTrigger("tick", c))
		x.runAll()
		assert.Equal(t, domain.State("C"), c.State())
	})

	t.Run("Dropped without retries", func(t *testing.T) {
		x := &manualExecutor{}
		engine := newEngine(t, def, runtime.WithExecutor(x), runtime.WithCASRetries(0))
		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))
		x.runAll()

		require.True(t, engine.SafeTrigger("tick", c))
		require.True(t, engine.SafeTrigger("tick", c))
		x.runAll()
		assert.Equal(t, domain.State("B"), c.State())
	})

	t.Run("Conditional triggers never retry", func(t *testing.T) {
		x := &manualExecutor{}
		engine := newEngine(t, def, runtime.WithExecutor(x))
		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))
		x.runAll()

		for i := 0; i < 2; i++ {
			ok, err := engine.ConditionTrigger("tick", c, "A")
			require.NoError(t, err)
			require.True(t, ok)
		}
		x.runAll()
		assert.Equal(t, domain.State("B"), c.State())
	})
}

func TestEngine_Stop(t *testing.T) {
	x := &manualExecutor{}
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(x))
	entered := 0
	engine.Handlers().OnAnyEnter(func(domain.State, *domain.Context) error {
		entered++
		return nil
	})

	c := domain.NewContext()
	require.NoError(t, engine.Start(c, false))
	x.runAll()
	require.Equal(t, 1, entered)

	require.True(t, engine.SafeTrigger("e1", c))
	c.Stop()
	x.runAll()

	assert.Equal(t, 1, entered, "scheduled steps of a stopped context are no-ops")
	assert.Equal(t, domain.State("A"), c.State())
	assert.True(t, c.IsStopped())
	assert.NoError(t, c.Wait(context.Background()))
}

func TestEngine_ExecutionErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("Error handler then termination", func(t *testing.T) {
		engine := newEngine(t, linearFlow())
		engine.Handlers().OnEnter("B", func(domain.State, *domain.Context) error { return boom })

		got := make(chan *domain.ExecutionError, 1)
		engine.Handlers().OnError(func(err *domain.ExecutionError) {
			assert.False(t, err.Context.IsTerminated(), "error handler runs before termination")
			got <- err
		})
		final := make(chan domain.State, 1)
		engine.Handlers().OnFinal(func(state domain.State, c *domain.Context) error {
			assert.True(t, c.IsTerminated())
			final <- state
			return nil
		})

		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))
		_, err := c.Trigger("e1")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, c.Wait(ctx))
		assert.True(t, c.IsTerminated())

		execErr := <-got
		assert.Equal(t, domain.PhaseEnter, execErr.Phase)
		assert.Equal(t, domain.State("B"), execErr.State)
		assert.Equal(t, domain.Event("e1"), execErr.Event)
		assert.Same(t, c, execErr.Context)
		assert.ErrorIs(t, execErr, boom)

		select {
		case state := <-final:
			assert.Equal(t, domain.State("B"), state, "final handler sees the failing state")
		case <-ctx.Done():
			t.Fatal("final handler not called after execution error")
		}
	})

	t.Run("Panics are recovered", func(t *testing.T) {
		engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
		engine.Handlers().OnEvent("e1", func(domain.Event, domain.State, domain.State, *domain.Context) error {
			panic("kaboom")
		})
		var got *domain.ExecutionError
		engine.Handlers().OnError(func(err *domain.ExecutionError) { got = err })

		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))
		assert.True(t, engine.SafeTrigger("e1", c))

		require.NotNil(t, got)
		assert.ErrorIs(t, got, domain.ErrHandlerPanic)
		assert.Equal(t, domain.PhaseTrigger, got.Phase)
		assert.Equal(t, domain.State("A"), c.State(), "a failed event handler prevents the change")
		assert.True(t, c.IsTerminated())
	})

	t.Run("Leave failure stops before enter", func(t *testing.T) {
		engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
		engine.Handlers().OnLeave("A", func(domain.State, *domain.Context) error { return boom })
		enteredB := false
		engine.Handlers().OnEnter("B", func(domain.State, *domain.Context) error {
			enteredB = true
			return nil
		})

		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))
		engine.SafeTrigger("e1", c)

		assert.False(t, enteredB)
		assert.True(t, c.IsTerminated())
	})

	t.Run("Default error handler logs", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()), runtime.WithLogger(logger))
		engine.Handlers().OnEnter("A", func(domain.State, *domain.Context) error { return boom })

		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))

		assert.True(t, c.IsTerminated())
		assert.Contains(t, buf.String(), "execution error")
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("Final handler errors are swallowed", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()), runtime.WithLogger(logger))
		errorCalled := false
		engine.Handlers().OnError(func(*domain.ExecutionError) { errorCalled = true })
		engine.Handlers().OnFinal(func(domain.State, *domain.Context) error { return boom })

		c := domain.NewContext(domain.WithState("B"))
		require.NoError(t, engine.Start(c, false))
		engine.SafeTrigger("e2", c)

		assert.True(t, c.IsTerminated())
		assert.False(t, errorCalled)
		assert.Contains(t, buf.String(), "final state handler failed")
	})
}

func TestEngine_Resume(t *testing.T) {
	t.Run("Without entering", func(t *testing.T) {
		engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
		rec := &recorder{}
		engine.Handlers().OnAnyEnter(func(s domain.State, _ *domain.Context) error {
			rec.add("enter " + string(s))
			return nil
		})

		c := domain.NewContext(domain.WithState("B"))
		require.NoError(t, engine.Start(c, false))
		assert.Empty(t, rec.list())

		assert.True(t, c.SafeTrigger("e2"))
		assert.Equal(t, []string{"enter C"}, rec.list())
	})

	t.Run("Entering the carried state", func(t *testing.T) {
		engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
		rec := &recorder{}
		engine.Handlers().OnAnyEnter(func(s domain.State, _ *domain.Context) error {
			rec.add("enter " + string(s))
			return nil
		})
		engine.Handlers().OnAnyLeave(func(s domain.State, _ *domain.Context) error {
			rec.add("leave " + string(s))
			return nil
		})

		c := domain.NewContext(domain.WithState("B"))
		require.NoError(t, engine.Start(c, true))
		assert.Equal(t, []string{"enter B"}, rec.list())
	})
}

func TestEngine_TaskWrapper(t *testing.T) {
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
	engine.Handlers().OnAnyEnter(func(s domain.State, c *domain.Context) error {
		switch s {
		case "A":
			c.SafeTrigger("e1")
		case "B":
			c.SafeTrigger("e2")
		}
		return nil
	})

	wrapped := 0
	c := domain.NewContext(domain.WithTaskWrapper(func(task func()) {
		wrapped++
		task()
	}))
	require.NoError(t, engine.Start(c, false))

	assert.True(t, c.IsTerminated())
	// enter A, then fire and change for each of the two events
	assert.Equal(t, 5, wrapped)
}

func TestEngine_ExecutorIsLockedAfterStart(t *testing.T) {
	engine := newEngine(t, linearFlow())
	assert.Nil(t, engine.Executor())
	require.NoError(t, engine.SetExecutor(executor.NewInline()))

	require.NoError(t, engine.Start(domain.NewContext(), false))
	assert.ErrorIs(t, engine.SetExecutor(executor.NewSerial()), domain.ErrExecutorLocked)
	assert.IsType(t, &executor.Inline{}, engine.Executor())
}

func TestEngine_DefaultsToSerialExecutor(t *testing.T) {
	engine := newEngine(t, linearFlow())
	require.NoError(t, engine.Start(domain.NewContext(), false))
	assert.IsType(t, &executor.Pool{}, engine.Executor())
}

func TestEngine_Close(t *testing.T) {
	t.Run("Releases the default executor", func(t *testing.T) {
		engine := newEngine(t, linearFlow())
		c := domain.NewContext()
		require.NoError(t, engine.Start(c, false))

		engine.Close()
		assert.Equal(t, domain.State("A"), c.State())
		engine.Close()

		var ran atomic.Bool
		engine.Executor().Submit(func() { ran.Store(true) })
		assert.False(t, ran.Load(), "tasks after Close are dropped")
	})

	t.Run("Leaves a supplied executor running", func(t *testing.T) {
		pool := executor.NewSerial()
		defer pool.Close()
		engine := newEngine(t, linearFlow(), runtime.WithExecutor(pool))
		require.NoError(t, engine.Start(domain.NewContext(), false))

		engine.Close()

		done := make(chan struct{})
		pool.Submit(func() { close(done) })
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("supplied executor was closed")
		}
	})
}

func TestEngine_LifecycleHooks(t *testing.T) {
	rec := &recorder{}
	hooks := domain.LifecycleHooks{
		OnContextStart: func(_ context.Context, ev *domain.StateEvent) { rec.add("start " + string(ev.State)) },
		OnStateEnter:   func(_ context.Context, ev *domain.StateEvent) { rec.add("enter " + string(ev.State)) },
		OnStateLeave:   func(_ context.Context, ev *domain.StateEvent) { rec.add("leave " + string(ev.State)) },
		OnEventTrigger: func(_ context.Context, ev *domain.TriggerEvent) {
			rec.add("event " + string(ev.Event))
		},
		OnContextEnd: func(_ context.Context, ev *domain.StateEvent) { rec.add("end " + string(ev.State)) },
	}
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()), runtime.WithLifecycleHooks(hooks))

	c := domain.NewContext()
	require.NoError(t, engine.Start(c, false))
	c.SafeTrigger("e1")
	c.SafeTrigger("e2")

	assert.Equal(t, []string{
		"start A", "enter A",
		"event e1", "leave A", "enter B",
		"event e2", "leave B", "enter C", "end C",
	}, rec.list())
}

func TestEngine_LifecycleHooksOnStopAndResume(t *testing.T) {
	rec := &recorder{}
	hooks := domain.LifecycleHooks{
		OnContextStart: func(_ context.Context, ev *domain.StateEvent) { rec.add("start " + string(ev.State)) },
		OnContextEnd:   func(_ context.Context, ev *domain.StateEvent) { rec.add("end " + string(ev.State)) },
	}
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()), runtime.WithLifecycleHooks(hooks))
	finished := 0
	engine.Handlers().OnFinal(func(domain.State, *domain.Context) error {
		finished++
		return nil
	})

	stopped := domain.NewContext()
	require.NoError(t, engine.Start(stopped, false))
	stopped.Stop()
	stopped.Stop()

	resumed := domain.NewContext(domain.WithState("B"))
	require.NoError(t, engine.Start(resumed, false))
	require.NoError(t, engine.Start(resumed, true))
	resumed.SafeTrigger("e2")

	assert.Equal(t, []string{"start A", "end A", "start B", "end C"}, rec.list())
	assert.Equal(t, 1, finished, "a stopped context skips the final handler")
}

func TestEngine_AvailableTransitions(t *testing.T) {
	engine := newEngine(t, linearFlow(), runtime.WithExecutor(executor.NewInline()))
	c := domain.NewContext()
	assert.Nil(t, c.AvailableTransitions())

	require.NoError(t, engine.Start(c, false))
	got := c.AvailableTransitions()
	require.Len(t, got, 1)
	assert.Equal(t, domain.Event("e1"), got[0].Event)
	assert.Empty(t, engine.AvailableTransitions("C"))
}
