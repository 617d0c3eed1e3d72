// Package topic provides hierarchical event topics and wildcard pattern
// matching for the event bus.
//
// Topics use dot notation:
//
//	task.status.changed
//	task.progress
//	log.appended
//	bridge.connection.changed
//
// Two wildcards are supported in subscription patterns:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// So "task.*" matches task.progress but not task.status.changed, while
// "task.**" matches both.
package topic
