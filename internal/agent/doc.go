// Package agent runs named tasks through ordered step pipelines.
//
// An Executor owns the status of every task it runs. A run marks the task
// running, executes its steps one at a time, reports progress after each
// step, and finally records a Result and a terminal status:
//
//	idle -> running -> completed
//	             \---> error
//	             \---> idle (cancelled or timed out)
//
// Cancellation is cooperative. It is observed between steps, so a step that
// has started always runs to completion. Progress, status changes and log
// entries are published through the injected event bus and log store; the
// executor holds no global state.
package agent
