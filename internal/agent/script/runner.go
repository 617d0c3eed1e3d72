package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/logstore"
)

// DefaultStepTimeout bounds a single step call.
const DefaultStepTimeout = 10 * time.Second

const defaultScript = "default"

// Option configures a Runner.
type Option func(*Runner)

// WithStepTimeout bounds each step call; zero disables the bound.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// Runner holds one Lua state per script file.
type Runner struct {
	dir      string
	timeout  time.Duration
	states   map[agent.Kind]*state
	fallback *state
}

// Load reads every <kind>.lua and default.lua from dir. A missing dir
// yields an empty Runner. Files named after unknown kinds are skipped.
func Load(dir string, logs *logstore.Store, opts ...Option) (*Runner, error) {
	r := &Runner{
		dir:     dir,
		timeout: DefaultStepTimeout,
		states:  make(map[agent.Kind]*state),
	}
	for _, opt := range opts {
		opt(r)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read script dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".lua" {
			continue
		}
		base := strings.TrimSuffix(name, ".lua")

		var kind agent.Kind
		if base != defaultScript {
			k, err := agent.ParseKind(base)
			if err != nil {
				continue
			}
			kind = k
		}

		st, err := newState(filepath.Join(dir, name), logs)
		if err != nil {
			r.Close()
			return nil, err
		}
		if base == defaultScript {
			r.fallback = st
		} else {
			r.states[kind] = st
		}
	}
	return r, nil
}

// Kinds returns the kinds with a dedicated script, sorted.
func (r *Runner) Kinds() []agent.Kind {
	kinds := make([]agent.Kind, 0, len(r.states))
	for k := range r.states {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// HasDefault reports whether default.lua was loaded.
func (r *Runner) HasDefault() bool {
	return r.fallback != nil
}

// StepFunc returns the step work for kind, or nil when no script covers it.
func (r *Runner) StepFunc(kind agent.Kind) agent.StepFunc {
	st, ok := r.states[kind]
	if !ok {
		st = r.fallback
	}
	if st == nil {
		return nil
	}
	return func(ctx context.Context, sc agent.StepContext) error {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		return st.call(ctx, sc)
	}
}

// ExecutorOptions wires the loaded scripts into an executor.
func (r *Runner) ExecutorOptions() []agent.ExecutorOption {
	var opts []agent.ExecutorOption
	if r.fallback != nil {
		opts = append(opts, agent.WithStepFunc(r.StepFunc("")))
	}
	for _, k := range r.Kinds() {
		opts = append(opts, agent.WithKindStepFunc(k, r.StepFunc(k)))
	}
	return opts
}

// Close releases every Lua state.
func (r *Runner) Close() {
	for _, st := range r.states {
		st.close()
	}
	if r.fallback != nil {
		r.fallback.close()
	}
}
