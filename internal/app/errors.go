package app

import (
	"errors"
	"fmt"
)

var (
	// ErrShutdown is returned by operations on an application that has
	// been shut down.
	ErrShutdown = errors.New("application shut down")

	// ErrNoConfigFile is returned by Reload when no config path was given.
	ErrNoConfigFile = errors.New("no config file to reload")

	// ErrNoServer is returned by Serve when the API is unavailable.
	ErrNoServer = errors.New("api server not configured")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Component, e.Err)
}

// Unwrap returns the component's error.
func (e *InitError) Unwrap() error {
	return e.Err
}
