// Package bridge watches the connection to an external system and reports
// state changes on the event bus and in the log store.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dshills/agentcore/internal/event"
	"github.com/dshills/agentcore/internal/event/events"
	"github.com/dshills/agentcore/internal/logstore"
)

// State is a connection state.
type State = events.ConnectionState

// ErrDisconnected marks a probe failure that means "not reachable" rather
// than "broken". Probers wrap it; other errors put the monitor in the
// error state.
var ErrDisconnected = errors.New("disconnected")

// Prober checks the external system once.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// DirProber reports connected while a directory exists.
type DirProber struct {
	Path string
}

// Probe implements Prober.
func (p DirProber) Probe(context.Context) error {
	info, err := os.Stat(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", ErrDisconnected, p.Path)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", p.Path)
	}
	return nil
}

// TCPProber reports connected while a TCP address accepts connections.
type TCPProber struct {
	Addr string
}

// Probe implements Prober.
func (p TCPProber) Probe(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return conn.Close()
}

// RedisProber reports connected while a Redis server answers PING.
type RedisProber struct {
	Client redis.Cmdable
}

// Probe implements Prober.
func (p RedisProber) Probe(ctx context.Context) error {
	if err := p.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Interval between checks.
	Interval time.Duration

	// Timeout bounds a single probe.
	Timeout time.Duration
}

// DefaultMonitorConfig returns sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval: 5 * time.Second,
		Timeout:  2 * time.Second,
	}
}

// Monitor probes an external system and tracks its state.
type Monitor struct {
	name   string
	prober Prober
	config MonitorConfig
	logs   *logstore.Store
	bus    event.Bus

	mu      sync.Mutex
	state   State
	lastErr error

	runMu sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

// NewMonitor creates a monitor in the disconnected state. logs and bus may
// be nil.
func NewMonitor(name string, prober Prober, config MonitorConfig, logs *logstore.Store, bus event.Bus) *Monitor {
	def := DefaultMonitorConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Monitor{
		name:   name,
		prober: prober,
		config: config,
		logs:   logs,
		bus:    bus,
		state:  events.Disconnected,
	}
}

// Name returns the monitored system's name.
func (m *Monitor) Name() string {
	return m.name
}

// State returns the current state and the last probe error.
func (m *Monitor) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.lastErr
}

// Check probes once and returns the new state.
func (m *Monitor) Check(ctx context.Context) State {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	err := m.probe(ctx)
	next := events.Connected
	switch {
	case err == nil:
	case errors.Is(err, ErrDisconnected):
		next = events.Disconnected
	default:
		next = events.Failed
	}

	m.mu.Lock()
	prev := m.state
	m.state = next
	m.lastErr = err
	m.mu.Unlock()

	if next == events.Failed && m.logs != nil {
		m.logs.Error(fmt.Sprintf("bridge %s check failed", m.name), logstore.SourceBridge, map[string]any{"error": err.Error()})
	}
	if prev == next {
		return next
	}

	if m.logs != nil {
		m.logs.Info(fmt.Sprintf("bridge %s: %s -> %s", m.name, prev, next), logstore.SourceBridge, nil)
	}
	if m.bus != nil {
		ev := events.ConnectionChanged{Name: m.name, Previous: prev, Current: next}
		if err != nil {
			ev.Error = err.Error()
		}
		_ = m.bus.Publish(context.Background(), ev)
	}
	return next
}

func (m *Monitor) probe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panic: %v", r)
		}
	}()
	return m.prober.Probe(ctx)
}

// Start checks immediately and then every interval until Stop or ctx ends.
// Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.stop != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	m.stop, m.done = stop, done

	go func() {
		defer close(done)
		m.Check(ctx)

		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop ends the check loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.runMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
