// Package logstore is the bounded, structured log behind agentcore.
//
// A Store keeps at most MaxEntries entries and returns them newest first.
// Entries below the configured minimum level are dropped at write time.
// Queries take an optional Filter whose fields are combined with AND.
//
// History can be exported as JSON (lossless), CSV or plain text, and JSON
// can be imported again. A Persister saves the newest entries on a timer
// and on Close; persistence is best-effort and its failures never reach
// callers.
//
// The store is the application's logger: it is constructed once and
// passed to every component that logs.
package logstore
