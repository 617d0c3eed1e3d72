package events

import (
	"context"

	"github.com/dshills/agentcore/internal/event"
)

// Subscribe registers fn for every event of type T.
//
//	events.Subscribe(bus, func(ctx context.Context, p events.Progress) error {
//	    fmt.Println(p.Value)
//	    return nil
//	})
func Subscribe[T Event](bus event.Bus, fn func(context.Context, T) error, opts ...event.SubscriptionOption) (event.Subscription, error) {
	if fn == nil {
		return nil, event.ErrNilHandler
	}
	var zero T
	return bus.SubscribeFunc(zero.EventTopic(), func(ctx context.Context, ev any) error {
		typed, ok := ev.(T)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	}, opts...)
}

// SubscribeAll registers fn for every event in the set.
func SubscribeAll(bus event.Bus, fn func(context.Context, Event) error, opts ...event.SubscriptionOption) (event.Subscription, error) {
	if fn == nil {
		return nil, event.ErrNilHandler
	}
	return bus.SubscribeFunc("**", func(ctx context.Context, ev any) error {
		typed, ok := ev.(Event)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	}, opts...)
}
