// Package ledger holds the ordered task store for a single reconciliation
// run. The ledger is ephemeral: it is built up phase by phase, executed once
// and discarded, all durable state lives in Confluent Cloud and the secret
// store.
package ledger

import "fmt"

// Ledger is an insertion-ordered collection of tasks keyed by sequence
// number. It is not safe for concurrent use; the workflow pipeline is
// sequential and serializes all writes.
type Ledger struct {
	tasks []Task
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Add appends tasks in order and returns the sequence number of the first
// appended task.
func (l *Ledger) Add(tasks ...Task) int {
	first := len(l.tasks)
	l.tasks = append(l.tasks, tasks...)
	return first
}

func (l *Ledger) Len() int {
	return len(l.tasks)
}

// Get returns the task at the given sequence number.
func (l *Ledger) Get(seq int) (Task, error) {
	if seq < 0 || seq >= len(l.tasks) {
		return Task{}, fmt.Errorf("no task with sequence number %d", seq)
	}
	return l.tasks[seq], nil
}

// SetStatus resolves a task. Only not-started tasks may be resolved, and a
// resolved task is never revisited. A non-nil payload replaces the task
// payload, which is how effector results such as newly assigned ids are
// folded back in.
func (l *Ledger) SetStatus(seq int, status Status, message string, payload Payload) error {
	if seq < 0 || seq >= len(l.tasks) {
		return fmt.Errorf("no task with sequence number %d", seq)
	}
	task := &l.tasks[seq]
	if task.Status != StatusNotStarted {
		return fmt.Errorf("task %d already resolved as %s", seq, task.Status)
	}
	if status != StatusSuccess && status != StatusFailed {
		return fmt.Errorf("illegal transition from %s to %s", task.Status, status)
	}
	task.Status = status
	task.StatusMessage = message
	if payload != nil {
		task.Payload = payload
	}
	return nil
}

// Pending returns the sequence numbers of all not-started tasks, in insertion
// order. It drives the orchestrator's per-phase execution loop.
func (l *Ledger) Pending() []int {
	var out []int
	for i, t := range l.tasks {
		if t.Status == StatusNotStarted {
			out = append(out, i)
		}
	}
	return out
}

// All returns a copy of every task in insertion order.
func (l *Ledger) All() []Task {
	out := make([]Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Filter returns every task of the given task type, in insertion order.
func (l *Ledger) Filter(taskType TaskType) []Task {
	var out []Task
	for _, t := range l.tasks {
		if t.Type == taskType {
			out = append(out, t)
		}
	}
	return out
}

// Failed reports how many tasks resolved as failed.
func (l *Ledger) Failed() int {
	n := 0
	for _, t := range l.tasks {
		if t.Status == StatusFailed {
			n++
		}
	}
	return n
}
