// Package registry loads agent descriptors from a directory of Markdown
// files.
//
// Each *.md file describes one agent. The file name is the agent id. An
// optional YAML front matter block sets fields explicitly:
//
//	---
//	name: React Component Expert
//	kind: frontend
//	category: Frontend
//	capabilities: [hooks, suspense]
//	---
//	# Builds accessible React components
//
// Fields missing from the front matter are inferred from the file name and
// the Markdown body.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/logstore"
)

// Descriptor is a loaded agent.
type Descriptor struct {
	agent.Task

	Examples []string `json:"examples,omitempty"`

	// Path is the source file; empty for built-in agents.
	Path string `json:"path,omitempty"`
}

// Registry holds the loaded agents. It implements agent.Registry.
type Registry struct {
	mu    sync.RWMutex
	dir   string
	logs  *logstore.Store
	byID  map[string]Descriptor
	order []string
}

// New returns a registry holding descs, in order.
func New(descs ...Descriptor) *Registry {
	r := &Registry{}
	r.replace(descs)
	return r
}

// Load reads every agent file in dir. A missing directory falls back to
// the built-in agents. Files that fail to parse are logged and skipped.
func Load(ctx context.Context, dir string, logs *logstore.Store) (*Registry, error) {
	r := &Registry{dir: dir, logs: logs}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rereads the directory and replaces the loaded agents.
func (r *Registry) Reload(ctx context.Context) error {
	descs, err := r.scan(ctx)
	if err != nil {
		return err
	}
	r.replace(descs)
	return nil
}

func (r *Registry) scan(ctx context.Context) ([]Descriptor, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		r.logf(logstore.LevelWarn, "agent directory %s not found, using built-in agents", r.dir)
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agent dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	descs := make([]Descriptor, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			r.logf(logstore.LevelError, "failed to read agent file %s: %v", name, err)
			continue
		}
		d, err := Parse(strings.TrimSuffix(name, ".md"), data)
		if err != nil {
			r.logf(logstore.LevelError, "failed to parse agent file %s: %v", name, err)
			continue
		}
		d.Path = path
		descs = append(descs, d)
	}

	r.logf(logstore.LevelInfo, "%d agents loaded", len(descs))
	return descs, nil
}

func (r *Registry) replace(descs []Descriptor) {
	byID := make(map[string]Descriptor, len(descs))
	order := make([]string, 0, len(descs))
	for _, d := range descs {
		if _, dup := byID[d.ID]; !dup {
			order = append(order, d.ID)
		}
		byID[d.ID] = d
	}

	r.mu.Lock()
	r.byID = byID
	r.order = order
	r.mu.Unlock()
}

func (r *Registry) logf(level logstore.Level, format string, args ...any) {
	if r.logs == nil {
		return
	}
	r.logs.Append(level, fmt.Sprintf(format, args...), logstore.SourceSystem, map[string]any{"dir": r.dir}, "")
}

// Lookup implements agent.Registry.
func (r *Registry) Lookup(id string) (agent.Task, bool) {
	d, ok := r.Descriptor(id)
	return d.Task, ok
}

// Descriptor returns the full descriptor for id.
func (r *Registry) Descriptor(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// List returns every agent in load order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.order))
	for i, id := range r.order {
		out[i] = r.byID[id]
	}
	return out
}

// ByKind returns the agents of one kind.
func (r *Registry) ByKind(kind agent.Kind) []Descriptor {
	return r.filter(func(d Descriptor) bool { return d.Kind == kind })
}

// ByCategory returns the agents in one category.
func (r *Registry) ByCategory(category string) []Descriptor {
	return r.filter(func(d Descriptor) bool { return d.Category == category })
}

func (r *Registry) filter(keep func(Descriptor) bool) []Descriptor {
	var out []Descriptor
	for _, d := range r.List() {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Defaults returns the built-in agents used when no directory exists.
func Defaults() []Descriptor {
	return []Descriptor{
		{Task: agent.Task{
			ID:          "debug-specialist",
			Name:        "Debug Specialist",
			Kind:        agent.KindGeneral,
			Category:    "General",
			Description: "Diagnoses and fixes defects",
		}},
		{Task: agent.Task{
			ID:          "frontend-react",
			Name:        "React Expert",
			Kind:        agent.KindFrontend,
			Category:    "Frontend",
			Description: "Builds React components",
		}},
		{Task: agent.Task{
			ID:          "backend-firebase",
			Name:        "Firebase Expert",
			Kind:        agent.KindBackend,
			Category:    "Backend",
			Description: "Designs Firebase backends",
		}},
	}
}
