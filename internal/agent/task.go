package agent

import (
	"fmt"
	"sort"
	"strings"
)

// Kind selects a task's step list and output template.
type Kind string

// Task kinds.
const (
	KindGeneral     Kind = "general"
	KindFrontend    Kind = "frontend"
	KindBackend     Kind = "backend"
	KindMobile      Kind = "mobile"
	KindSecurity    Kind = "security"
	KindPerformance Kind = "performance"
	KindDocs        Kind = "docs"
	KindAI          Kind = "ai"
	KindWorkflow    Kind = "workflow"
)

// Kinds returns every kind.
func Kinds() []Kind {
	return []Kind{
		KindGeneral, KindFrontend, KindBackend, KindMobile, KindSecurity,
		KindPerformance, KindDocs, KindAI, KindWorkflow,
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindSteps[k]
	return ok
}

// ParseKind converts a string into a Kind. "general-purpose" is accepted
// as an alias for general.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "general-purpose" {
		return KindGeneral, nil
	}
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown task kind %q", s)
	}
	return k, nil
}

// Task describes a runnable agent. Tasks are values and are never mutated
// by the executor.
type Task struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Category     string   `json:"category,omitempty" yaml:"category"`
	Kind         Kind     `json:"kind" yaml:"kind"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities"`
}

// DisplayName returns the name, falling back to the id.
func (t Task) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Registry resolves task ids.
type Registry interface {
	Lookup(id string) (Task, bool)
}

// TaskMap is an in-memory Registry keyed by task id.
type TaskMap map[string]Task

// NewTaskMap builds a TaskMap from tasks.
func NewTaskMap(tasks ...Task) TaskMap {
	m := make(TaskMap, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return m
}

// Lookup implements Registry.
func (m TaskMap) Lookup(id string) (Task, bool) {
	t, ok := m[id]
	return t, ok
}

// List returns the tasks sorted by id.
func (m TaskMap) List() []Task {
	out := make([]Task, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
