package event

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEvent is returned by Publish for a value without a topic.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidTopic is returned by Subscribe for a malformed pattern.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilHandler is returned by Subscribe for a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNotSubscribed is returned by Unsubscribe for a nil or
	// already-cancelled subscription.
	ErrNotSubscribed = errors.New("not subscribed")

	// ErrHandlerPanic matches a DeliveryError whose handler panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)

// DeliveryError is what the bus reports when a handler fails. Exactly one
// of Err and Recovered is set.
type DeliveryError struct {
	Subscription string
	Pattern      string
	Err          error
	Recovered    any
	Stack        []byte
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("subscriber %s (%s) panicked: %v", e.Subscription, e.Pattern, e.Recovered)
	}
	return fmt.Sprintf("subscriber %s (%s): %v", e.Subscription, e.Pattern, e.Err)
}

// Unwrap returns the handler's error, or nil after a panic.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is reports a panic as ErrHandlerPanic.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrHandlerPanic && e.Recovered != nil
}
