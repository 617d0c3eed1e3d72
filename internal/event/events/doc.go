// Package events defines the closed set of events published on the bus.
//
// Every event is one of StatusChanged, Progress, LogAppended or
// ConnectionChanged. The Event interface is sealed, so a subscriber that
// switches on the concrete type sees every case:
//
//	switch ev := ev.(type) {
//	case events.StatusChanged:
//	case events.Progress:
//	case events.LogAppended:
//	case events.ConnectionChanged:
//	}
//
// Topics follow the bus's dot notation (<module>.<entity>.<action>), so
// "task.**" receives both task topics.
package events
