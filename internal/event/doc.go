// Package event provides the synchronous publish/subscribe bus that
// decouples the task executor and log store from the collaborators that
// render their state.
//
// # Delivery
//
// Publish delivers an event to every matching subscription in the caller's
// goroutine before returning. Subscriptions are ordered by priority and
// then by the order in which they were made. A handler that returns an error
// or panics is recovered and reported through the bus's
// ErrorReporter; it never stops delivery to later handlers and never reaches
// the publisher.
//
// # Topics
//
// Every event carries a hierarchical topic (see package topic). Subscribers
// may use wildcards:
//
//	sub, _ := bus.SubscribeFunc("task.**", func(ctx context.Context, ev any) error {
//	    switch e := ev.(type) {
//	    case events.StatusChanged:
//	        ...
//	    }
//	    return nil
//	})
//	defer sub.Unsubscribe()
//
// Payload shapes are defined in package events.
package event
