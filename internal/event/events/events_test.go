package events

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/agentcore/internal/event"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/status"
)

func TestSubscribe_Typed(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()

	var got []Progress
	if _, err := Subscribe(bus, func(_ context.Context, p Progress) error {
		got = append(got, p)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	bus.Publish(ctx, StatusChanged{TaskID: "a", Status: status.Running})
	bus.Publish(ctx, Progress{TaskID: "a", RunID: "r1", Value: 50, Label: "half"})

	if len(got) != 1 || got[0].Value != 50 || got[0].RunID != "r1" {
		t.Errorf("received %+v", got)
	}
}

func TestSubscribe_NilHandler(t *testing.T) {
	bus := event.NewBus()
	if _, err := Subscribe[LogAppended](bus, nil); !errors.Is(err, event.ErrNilHandler) {
		t.Errorf("Subscribe(nil) = %v", err)
	}
}

func TestSubscribeAll_Exhaustive(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()

	counts := map[string]int{}
	SubscribeAll(bus, func(_ context.Context, ev Event) error {
		switch ev.(type) {
		case StatusChanged:
			counts["status"]++
		case Progress:
			counts["progress"]++
		case LogAppended:
			counts["log"]++
		case ConnectionChanged:
			counts["connection"]++
		}
		return nil
	})

	bus.Publish(ctx, StatusChanged{TaskID: "a", Status: status.Completed})
	bus.Publish(ctx, Progress{TaskID: "a", Value: 100})
	bus.Publish(ctx, LogAppended{Entry: logstore.Entry{Message: "m"}})
	bus.Publish(ctx, ConnectionChanged{Name: "ons", Previous: Disconnected, Current: Connected})

	for _, k := range []string{"status", "progress", "log", "connection"} {
		if counts[k] != 1 {
			t.Errorf("%s delivered %d times", k, counts[k])
		}
	}
}

func TestTopics_Wildcard(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()

	var n int
	bus.SubscribeFunc("task.**", func(context.Context, any) error {
		n++
		return nil
	})
	bus.Publish(ctx, StatusChanged{TaskID: "a"})
	bus.Publish(ctx, Progress{TaskID: "a"})
	bus.Publish(ctx, LogAppended{})

	if n != 2 {
		t.Errorf("task.** received %d events, want 2", n)
	}
}
