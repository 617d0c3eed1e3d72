// Package status tracks the lifecycle state of every task the executor has
// run. Collaborators read it; only the executor writes it.
package status

import (
	"fmt"
	"sort"
	"sync"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// Idle means the task is not running. Every task starts here, and a
	// cancelled or timed-out run returns here.
	Idle Status = "idle"
	// Running means a run is in progress.
	Running Status = "running"
	// Completed means the last run succeeded.
	Completed Status = "completed"
	// Error means the last run failed.
	Error Status = "error"
)

// Parse converts a string into a Status.
func Parse(s string) (Status, error) {
	switch Status(s) {
	case Idle, Running, Completed, Error:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// IsTerminal reports whether the status ends a run.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Error
}

// Reader is the read-only view of a Table handed to collaborators.
type Reader interface {
	Get(taskID string) Status
	Snapshot() map[string]Status
	Running() []string
}

// Table maps task IDs to their current status. Entries are created lazily
// on the first Set and live for the lifetime of the table.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Status
}

// NewTable creates an empty status table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]Status),
	}
}

// Get returns the status of a task; unknown tasks are Idle.
func (t *Table) Get(taskID string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, ok := t.entries[taskID]; ok {
		return s
	}
	return Idle
}

// Set records a new status and returns the previous one and whether it
// changed.
func (t *Table) Set(taskID string, s Status) (prev Status, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.entries[taskID]
	if !ok {
		prev = Idle
	}
	t.entries[taskID] = s
	return prev, prev != s || !ok
}

// Snapshot returns a copy of all entries.
func (t *Table) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Status, len(t.entries))
	for id, s := range t.entries {
		out[id] = s
	}
	return out
}

// Running returns the sorted IDs of tasks currently running.
func (t *Table) Running() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	for id, s := range t.entries {
		if s == Running {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
