package runtime_test

import (
	"sync"
	"testing"

	"github.com/aretw0/flowfsm/internal/runtime"
	"github.com/aretw0/flowfsm/pkg/dsl"
	"github.com/stretchr/testify/require"
)

// linearFlow is A --e1--> B --e2--> C(final).
func linearFlow() *dsl.Definition {
	return dsl.NewFlow("A").Transit(
		dsl.On("e1").To("B").Transit(
			dsl.On("e2").Finish("C"),
		),
	)
}

func newEngine(t *testing.T, def *dsl.Definition, opts ...runtime.Option) *runtime.Engine {
	t.Helper()
	c, err := def.Build(false)
	require.NoError(t, err)
	return runtime.NewEngine(def.Start(), c, opts...)
}

// manualExecutor queues tasks until the test runs them.
type manualExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (m *manualExecutor) Submit(task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

func (m *manualExecutor) runAll() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return n
		}
		task := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()

		task()
		n++
	}
}

// recorder is a concurrency-safe ordered log.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// tickFlow is A --tick--> B --tick--> C --tick--> D(final).
func tickFlow() *dsl.Definition {
	return dsl.NewFlow("A").Transit(
		dsl.On("tick").To("B").Transit(
			dsl.On("tick").To("C").Transit(
				dsl.On("tick").Finish("D"),
			),
		),
	)
}
