package httpapi

import (
	"context"
	"sync"
	"sync/atomic"
)

// TaskRegistry tracks in-flight speech tasks and supports graceful draining.
// Once draining starts, new tasks are rejected while running ones finish.
//
// mu makes the draining check and wg.Add atomic in Add, so no task can
// slip in between StartDraining and Wait.
type TaskRegistry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	count    atomic.Int64
}

// NewTaskRegistry creates a new TaskRegistry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{}
}

// Add registers a new task. Returns false if the registry is draining.
func (tr *TaskRegistry) Add() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.draining {
		return false
	}
	tr.wg.Add(1)
	tr.count.Add(1)
	return true
}

// Done marks a task as finished. Must be called exactly once per successful Add.
func (tr *TaskRegistry) Done() {
	tr.count.Add(-1)
	tr.wg.Done()
}

// StartDraining makes future Add calls return false.
func (tr *TaskRegistry) StartDraining() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.draining = true
}

// IsDraining reports whether the registry is in draining mode.
func (tr *TaskRegistry) IsDraining() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.draining
}

// ActiveCount returns the number of tasks currently running.
func (tr *TaskRegistry) ActiveCount() int64 {
	return tr.count.Load()
}

// Wait blocks until every task has called Done, or ctx ends.
func (tr *TaskRegistry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		tr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
