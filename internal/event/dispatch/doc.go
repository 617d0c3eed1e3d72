// Package dispatch runs a single event handler on behalf of the bus.
//
// Invoke recovers panics and times the call. The bus decides what to do
// with the Outcome; nothing here queues or retries.
package dispatch
