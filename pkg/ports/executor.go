package ports

// Executor submits a unit of work for asynchronous execution.
// Implementations choose their own ordering; single-worker executors run tasks FIFO.
type Executor interface {
	Submit(task func())
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(task func())

func (f ExecutorFunc) Submit(task func()) {
	f(task)
}
