package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/agent/script"
	"github.com/dshills/agentcore/internal/api"
	"github.com/dshills/agentcore/internal/bridge"
	"github.com/dshills/agentcore/internal/config"
	"github.com/dshills/agentcore/internal/event"
	"github.com/dshills/agentcore/internal/event/events"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/registry"
	"github.com/dshills/agentcore/internal/status"
)

// bootstrapper starts components in dependency order and stops the ones
// already started when a later one fails.
type bootstrapper struct {
	app       *Application
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		initOrder: make([]string, 0, 10),
	}
}

func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", b.initConfig},
		{"logs", b.initLogs},
		{"bus", b.initBus},
		{"registry", b.initRegistry},
		{"scripts", b.initScripts},
		{"executor", b.initExecutor},
		{"bridge", b.initBridge},
		{"api", b.initAPI},
		{"watcher", b.initWatcher},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}

	cfg := b.app.config
	b.app.logs.Info("agentcore started", logstore.SourceSystem, map[string]any{
		"agents":  b.app.registry.Len(),
		"backend": cfg.Log.Backend,
		"policy":  cfg.Executor.Policy,
	})
	return nil
}

func (b *bootstrapper) initConfig() error {
	a := b.app
	var cfg config.Config
	if a.opts.Config != nil {
		cfg = *a.opts.Config
	} else {
		loaded, err := config.Load(a.opts.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.config = cfg
	return nil
}

func (b *bootstrapper) initLogs() error {
	a := b.app
	cfg := a.config.Log

	var opts []logstore.Option
	switch cfg.Backend {
	case config.BackendFile:
		opts = append(opts, logstore.WithPersister(logstore.NewFilePersister(cfg.File)))
	case config.BackendRedis:
		p := logstore.NewRedisPersister(cfg.RedisOptions())
		a.closers = append(a.closers, p.Close)
		opts = append(opts, logstore.WithPersister(p))
	}
	if cfg.Console {
		w := a.opts.Console
		if w == nil {
			w = os.Stderr
		}
		opts = append(opts, logstore.WithConsole(w))
	}

	a.logs = logstore.New(cfg.StoreConfig(), opts...)

	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if n := a.logs.Open(ctx); n > 0 {
		a.logs.Debug(fmt.Sprintf("%d log entries restored", n), logstore.SourceSystem, nil)
	}
	if err := a.logs.LastPersistError(); err != nil {
		a.logs.Warn("Could not restore saved logs", logstore.SourceSystem, map[string]any{"error": err.Error()})
	}
	if cfg.Backend != config.BackendNone {
		a.logs.StartAutoSave(cfg.AutoSave.Duration)
	}
	return nil
}

func (b *bootstrapper) initBus() error {
	a := b.app
	a.bus = event.NewBus(event.WithErrorReporter(a.reportBusError))

	// Every accepted log entry is also an event.
	a.unhook = a.logs.OnAppend(func(e logstore.Entry) {
		_ = a.bus.Publish(a.ctx, events.LogAppended{Entry: e})
	})
	return nil
}

// reportBusError logs subscriber failures. Failures while delivering
// LogAppended are dropped: logging them would publish another LogAppended.
func (a *Application) reportBusError(ev any, err error) {
	if _, ok := ev.(events.LogAppended); ok {
		return
	}
	details := map[string]any{"error": err.Error()}
	if e, ok := ev.(events.Event); ok {
		details["topic"] = string(e.EventTopic())
	}
	a.logs.Error("Event handler failed", logstore.SourceSystem, details)
}

func (b *bootstrapper) initRegistry() error {
	a := b.app
	reg, err := registry.Load(a.ctx, a.config.Agents.Dir, a.logs)
	if err != nil {
		return err
	}
	a.registry = reg
	return nil
}

func (b *bootstrapper) initScripts() error {
	a := b.app
	if a.config.Executor.ScriptDir == "" {
		return nil
	}
	runner, err := script.Load(a.config.Executor.ScriptDir, a.logs,
		script.WithStepTimeout(a.config.Executor.ScriptTimeout.Duration))
	if err != nil {
		return err
	}
	a.scripts = runner
	if kinds := runner.Kinds(); len(kinds) > 0 || runner.HasDefault() {
		a.logs.Info(fmt.Sprintf("%d step scripts loaded", len(kinds)), logstore.SourceSystem, map[string]any{
			"dir":     a.config.Executor.ScriptDir,
			"default": runner.HasDefault(),
		})
	}
	return nil
}

func (b *bootstrapper) initExecutor() error {
	a := b.app
	a.statuses = status.NewTable()

	opts := []agent.ExecutorOption{agent.WithBus(a.bus)}
	if a.scripts != nil {
		opts = append(opts, a.scripts.ExecutorOptions()...)
	}
	a.executor = agent.NewExecutor(a.config.Executor.Agent(), a.registry, a.statuses, a.logs, opts...)
	return nil
}

func (b *bootstrapper) initBridge() error {
	a := b.app
	cfg := a.config.Bridge

	var prober bridge.Prober
	switch cfg.Probe {
	case config.ProbeNone:
		return nil
	case config.ProbeDir:
		prober = bridge.DirProber{Path: cfg.Target}
	case config.ProbeTCP:
		prober = bridge.TCPProber{Addr: cfg.Target}
	case config.ProbeRedis:
		addr := cfg.Target
		if addr == "" {
			addr = a.config.Log.RedisAddr
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: a.config.Log.RedisPassword,
		})
		a.closers = append(a.closers, client.Close)
		prober = bridge.RedisProber{Client: client}
	default:
		return fmt.Errorf("unknown probe %q", cfg.Probe)
	}

	a.monitor = bridge.NewMonitor(cfg.Name, prober, cfg.MonitorConfig(), a.logs, a.bus)
	a.monitor.Start(a.ctx)
	return nil
}

func (b *bootstrapper) initAPI() error {
	a := b.app
	if mode := a.config.API.Mode; mode != "" {
		gin.SetMode(mode)
	}
	var opts []api.Option
	if a.monitor != nil {
		opts = append(opts, api.WithConnection(a.monitor))
	}
	a.server = api.New(a.executor, a.registry, a.logs, opts...)
	return nil
}

func (b *bootstrapper) initWatcher() error {
	a := b.app
	if !a.opts.Watch || a.opts.ConfigPath == "" {
		return nil
	}
	w, err := config.NewWatcher(a.opts.ConfigPath, a.reloadFromWatcher,
		config.WithErrorHandler(func(err error) {
			a.logs.Warn("Config watcher error", logstore.SourceSystem, map[string]any{"error": err.Error()})
		}))
	if err != nil {
		// Hot reload is a convenience; run without it.
		a.logs.Warn("Config hot reload disabled", logstore.SourceSystem, map[string]any{"error": err.Error()})
		return nil
	}
	a.watcher = w
	return nil
}

// cleanup stops started components in reverse order.
func (b *bootstrapper) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := b.app
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "watcher":
			if a.watcher != nil {
				_ = a.watcher.Close()
			}
		case "api":
			if a.server != nil {
				_ = a.server.Shutdown(ctx)
			}
		case "bridge":
			if a.monitor != nil {
				a.monitor.Stop()
			}
		case "executor":
			a.executor.CancelAll()
			_ = a.executor.Wait(ctx)
		case "scripts":
			if a.scripts != nil {
				a.scripts.Close()
			}
		case "bus":
			if a.unhook != nil {
				a.unhook()
			}
		case "logs":
			a.logs.Close(ctx)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
