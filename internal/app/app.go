// Package app wires the agentcore components together and owns their
// lifecycle.
package app

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/agent/script"
	"github.com/dshills/agentcore/internal/api"
	"github.com/dshills/agentcore/internal/bridge"
	"github.com/dshills/agentcore/internal/config"
	"github.com/dshills/agentcore/internal/event"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/registry"
	"github.com/dshills/agentcore/internal/status"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the TOML file to load. Empty uses defaults and the
	// environment.
	ConfigPath string

	// Config, when set, is used instead of loading ConfigPath.
	Config *config.Config

	// LogLevel overrides log.level, also across reloads.
	LogLevel string

	// Console receives echoed log lines when log.console is on. Defaults
	// to stderr.
	Console io.Writer

	// Watch reloads ConfigPath when it changes.
	Watch bool
}

// Application owns every component and the order they start and stop in.
type Application struct {
	opts Options

	mu     sync.RWMutex
	config config.Config

	logs      *logstore.Store
	closers   []func() error
	unhook    func()
	bus       event.Bus
	statuses  *status.Table
	registry  *registry.Registry
	scripts   *script.Runner
	executor  *agent.Executor
	monitor   *bridge.Monitor
	server    *api.Server
	watcher   *config.Watcher
	reloadMu  sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    bool
}

// New builds and starts every component. On failure, the components
// already started are stopped again.
func New(opts Options) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Application{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	if err := newBootstrapper(a).bootstrap(); err != nil {
		cancel()
		return nil, err
	}
	return a, nil
}

// Config returns the active configuration.
func (a *Application) Config() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// Logs returns the log store.
func (a *Application) Logs() *logstore.Store {
	return a.logs
}

// Bus returns the event bus.
func (a *Application) Bus() event.Bus {
	return a.bus
}

// Executor returns the task executor.
func (a *Application) Executor() *agent.Executor {
	return a.executor
}

// Registry returns the agent registry.
func (a *Application) Registry() *registry.Registry {
	return a.registry
}

// Monitor returns the bridge monitor, or nil when no probe is configured.
func (a *Application) Monitor() *bridge.Monitor {
	return a.monitor
}

// Server returns the API server.
func (a *Application) Server() *api.Server {
	return a.server
}

// RunTask looks up taskID and runs it.
func (a *Application) RunTask(ctx context.Context, taskID, input string, opts agent.RunOptions) (agent.Result, error) {
	if a.isClosed() {
		return agent.Result{}, ErrShutdown
	}
	task, ok := a.registry.Lookup(taskID)
	if !ok {
		return agent.Result{}, &agent.ValidationError{TaskID: taskID, Err: agent.ErrUnknownTask}
	}
	return a.executor.Run(ctx, task, input, opts)
}

// Serve starts the API on addr, or on api.addr when addr is empty.
func (a *Application) Serve(addr string) (net.Addr, error) {
	if a.isClosed() {
		return nil, ErrShutdown
	}
	if a.server == nil {
		return nil, ErrNoServer
	}
	if addr == "" {
		addr = a.Config().API.Addr
	}
	return a.server.Start(addr)
}

func (a *Application) isClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

// Shutdown cancels every run, stops the monitor, watcher and API, and
// closes the log store, which writes a final snapshot. Only the first call
// does anything.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		if a.watcher != nil {
			if err := a.watcher.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}

		if n := a.executor.CancelAll(); n > 0 {
			a.logs.Warn("Shutdown aborted running agents", logstore.SourceSystem, map[string]any{"count": n})
		}
		if err := a.executor.Wait(ctx); err != nil {
			errs = append(errs, err)
		}

		if a.monitor != nil {
			a.monitor.Stop()
		}
		a.cancel()
		if a.scripts != nil {
			a.scripts.Close()
		}

		a.logs.Info("agentcore stopped", logstore.SourceSystem, nil)
		a.logs.Close(ctx)
		if a.unhook != nil {
			a.unhook()
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
