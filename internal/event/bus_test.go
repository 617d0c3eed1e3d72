package event

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/agentcore/internal/event/topic"
)

type testEvent struct {
	topic topic.Topic
	value int
}

func (e testEvent) EventTopic() topic.Topic { return e.topic }

func TestBus_PublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		if _, err := bus.SubscribeFunc("task.progress", func(context.Context, any) error {
			order = append(order, name)
			return nil
		}); err != nil {
			t.Fatalf("SubscribeFunc() error = %v", err)
		}
	}

	if err := bus.Publish(context.Background(), testEvent{topic: "task.progress"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestBus_OrderAcrossWildcardPatterns(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.SubscribeFunc("task.**", func(context.Context, any) error {
		order = append(order, "wild")
		return nil
	})
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		order = append(order, "exact")
		return nil
	})
	bus.SubscribeFunc("task.*", func(context.Context, any) error {
		order = append(order, "single")
		return nil
	})

	bus.Publish(context.Background(), testEvent{topic: "task.progress"})

	want := []string{"wild", "exact", "single"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBus_PriorityBeforeSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.SubscribeFunc("log.appended", func(context.Context, any) error {
		order = append(order, "last")
		return nil
	}, WithPriority(PriorityLast))
	bus.SubscribeFunc("log.appended", func(context.Context, any) error {
		order = append(order, "first")
		return nil
	}, WithPriority(PriorityFirst))

	bus.Publish(context.Background(), testEvent{topic: "log.appended"})

	if len(order) != 2 || order[0] != "first" || order[1] != "last" {
		t.Errorf("order = %v, want [first last]", order)
	}
}

func TestBus_HandlerFailuresAreIsolated(t *testing.T) {
	var reported []error
	bus := NewBus(WithErrorReporter(func(_ any, err error) {
		reported = append(reported, err)
	}))

	boom := errors.New("boom")
	delivered := 0

	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		return boom
	})
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		panic("subscriber exploded")
	})
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		delivered++
		return nil
	})

	if err := bus.Publish(context.Background(), testEvent{topic: "task.progress"}); err != nil {
		t.Fatalf("Publish() error = %v, want nil", err)
	}

	if delivered != 1 {
		t.Errorf("later handler delivered %d times, want 1", delivered)
	}
	if len(reported) != 2 {
		t.Fatalf("reported %d failures, want 2", len(reported))
	}

	var derr *DeliveryError
	if !errors.As(reported[0], &derr) || !errors.Is(derr, boom) {
		t.Errorf("first report = %v, want DeliveryError wrapping boom", reported[0])
	}
	if errors.Is(reported[0], ErrHandlerPanic) {
		t.Error("returned error reported as a panic")
	}
	if !errors.Is(reported[1], ErrHandlerPanic) {
		t.Errorf("second report = %v, want panic error", reported[1])
	}

	s := bus.Stats()
	if s.Failed != 1 || s.Panicked != 1 || s.Delivered != 1 || s.Published != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestBus_PanickingReporterIsContained(t *testing.T) {
	bus := NewBus(WithErrorReporter(func(any, error) {
		panic("reporter exploded")
	}))
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		return errors.New("fail")
	})

	if err := bus.Publish(context.Background(), testEvent{topic: "task.progress"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0

	sub, err := bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	bus.Publish(context.Background(), testEvent{topic: "task.progress"})
	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Publish(context.Background(), testEvent{topic: "task.progress"})

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if err := bus.Unsubscribe(sub); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("Unsubscribe() again = %v, want ErrNotSubscribed", err)
	}
	if got := bus.Stats().Subscribers; got != 0 {
		t.Errorf("ActiveSubscribers = %d, want 0", got)
	}
}

func TestBus_UnsubscribeDuringDelivery(t *testing.T) {
	bus := NewBus()
	var second int
	var sub Subscription

	sub, _ = bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		sub.Unsubscribe()
		return nil
	})
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		second++
		return nil
	})

	bus.Publish(context.Background(), testEvent{topic: "task.progress"})
	bus.Publish(context.Background(), testEvent{topic: "task.progress"})

	if second != 2 {
		t.Errorf("second handler ran %d times, want 2", second)
	}
}

func TestBus_Once(t *testing.T) {
	bus := NewBus()
	count := 0
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		count++
		return nil
	}, WithOnce())

	bus.Publish(context.Background(), testEvent{topic: "task.progress"})
	bus.Publish(context.Background(), testEvent{topic: "task.progress"})

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestBus_Filter(t *testing.T) {
	bus := NewBus()
	var seen []int
	bus.SubscribeFunc("task.progress", func(_ context.Context, ev any) error {
		seen = append(seen, ev.(testEvent).value)
		return nil
	}, WithFilter(func(ev any) bool {
		return ev.(testEvent).value%2 == 0
	}))

	for i := 1; i <= 4; i++ {
		bus.Publish(context.Background(), testEvent{topic: "task.progress", value: i})
	}

	if len(seen) != 2 || seen[0] != 2 || seen[1] != 4 {
		t.Errorf("seen = %v, want [2 4]", seen)
	}
}

func TestBus_PauseResume(t *testing.T) {
	bus := NewBus()
	count := 0
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		count++
		return nil
	})

	bus.Pause()
	if !bus.IsPaused() {
		t.Fatal("expected paused bus")
	}
	bus.Publish(context.Background(), testEvent{topic: "task.progress"})
	bus.Resume()
	bus.Publish(context.Background(), testEvent{topic: "task.progress"})

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestBus_PausedSubscription(t *testing.T) {
	bus := NewBus()
	count := 0
	sub, _ := bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		count++
		return nil
	})

	sub.Pause()
	if sub.Active() {
		t.Error("paused subscription reported active")
	}
	bus.Publish(context.Background(), testEvent{topic: "task.progress"})
	sub.Resume()
	bus.Publish(context.Background(), testEvent{topic: "task.progress"})

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestBus_InvalidInput(t *testing.T) {
	bus := NewBus()

	if err := bus.Publish(context.Background(), "not an event"); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Publish(string) = %v, want ErrInvalidEvent", err)
	}
	if _, err := bus.Subscribe("task.progress", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("Subscribe(nil) = %v, want ErrNilHandler", err)
	}
	if _, err := bus.SubscribeFunc("", func(context.Context, any) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("SubscribeFunc(\"\") = %v, want ErrInvalidTopic", err)
	}
	if err := bus.Unsubscribe(nil); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("Unsubscribe(nil) = %v, want ErrNotSubscribed", err)
	}
}

func TestBus_CancelledContextStopsDelivery(t *testing.T) {
	bus := NewBus()
	ran := 0
	bus.SubscribeFunc("task.progress", func(context.Context, any) error {
		ran++
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bus.Publish(ctx, testEvent{topic: "task.progress"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if ran != 0 {
		t.Errorf("handler ran %d times on a cancelled context", ran)
	}
}
