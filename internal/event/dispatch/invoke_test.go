package dispatch

import (
	"context"
	"errors"
	"testing"
)

type handlerFunc func(ctx context.Context, event any) error

func (f handlerFunc) Handle(ctx context.Context, event any) error { return f(ctx, event) }

func TestInvoke(t *testing.T) {
	boom := errors.New("boom")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		handler handlerFunc
		want    Status
		wantErr error
	}{
		{"delivered", context.Background(), func(context.Context, any) error { return nil }, Delivered, nil},
		{"failed", context.Background(), func(context.Context, any) error { return boom }, Failed, boom},
		{"panicked", context.Background(), func(context.Context, any) error { panic("kaboom") }, Panicked, nil},
		{"skipped", cancelled, func(context.Context, any) error { t.Error("handler ran"); return nil }, Skipped, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Invoke(tt.ctx, "payload", tt.handler)
			if out.Status != tt.want {
				t.Errorf("Status = %s, want %s", out.Status, tt.want)
			}
			if !errors.Is(out.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", out.Err, tt.wantErr)
			}
		})
	}
}

func TestInvoke_PanicDetails(t *testing.T) {
	out := Invoke(context.Background(), nil, handlerFunc(func(context.Context, any) error {
		panic("kaboom")
	}))
	if out.Recovered != "kaboom" {
		t.Errorf("Recovered = %v", out.Recovered)
	}
	if len(out.Stack) == 0 {
		t.Error("no stack captured")
	}
}

func TestInvoke_PassesEvent(t *testing.T) {
	var got any
	Invoke(context.Background(), 42, handlerFunc(func(_ context.Context, ev any) error {
		got = ev
		return nil
	}))
	if got != 42 {
		t.Errorf("handler saw %v, want 42", got)
	}
}
