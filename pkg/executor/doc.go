/*
Package executor provides the ports.Executor implementations used by flowfsm.

  - Pool runs tasks on a fixed number of goroutines fed by an unbounded FIFO queue.
    NewSerial is a single-worker pool and the engine default: tasks run strictly in
    submission order.
  - Inline runs tasks on the submitting goroutine. Tasks submitted while another task
    is running are queued and drained before the outermost Submit returns, so a whole
    cascade of steps completes synchronously.

Panics escaping a task are recovered and logged; they never kill a worker.
*/
package executor
