package registry

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/logstore"
)

func TestParse_FrontMatter(t *testing.T) {
	src := `---
name: React Component Expert
kind: frontend
category: UI
capabilities: [hooks, suspense]
examples:
  - build a modal
---
# Builds accessible React components
`
	d, err := Parse("frontend-react-component", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := agent.Task{
		ID:           "frontend-react-component",
		Name:         "React Component Expert",
		Kind:         agent.KindFrontend,
		Category:     "UI",
		Description:  "Builds accessible React components",
		Capabilities: []string{"hooks", "suspense"},
	}
	if !reflect.DeepEqual(d.Task, want) {
		t.Errorf("Parse() =\n%+v\nwant\n%+v", d.Task, want)
	}
	if len(d.Examples) != 1 || d.Examples[0] != "build a modal" {
		t.Errorf("Examples = %v", d.Examples)
	}
}

func TestParse_Inferred(t *testing.T) {
	src := `Tunes slow pages.

## Capabilities
- bundle analysis
- lazy loading

## Example
- shrink the vendor chunk
`
	d, err := Parse("perf-bundle-optimizer", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != agent.KindPerformance || d.Category != "Performance" {
		t.Errorf("kind/category = %s/%s", d.Kind, d.Category)
	}
	if d.Name != "Perf Bundle Optimizer" || d.Description != "Tunes slow pages." {
		t.Errorf("name/description = %q/%q", d.Name, d.Description)
	}
	if !reflect.DeepEqual(d.Capabilities, []string{"bundle analysis", "lazy loading"}) {
		t.Errorf("Capabilities = %v", d.Capabilities)
	}
	if !reflect.DeepEqual(d.Examples, []string{"shrink the vendor chunk"}) {
		t.Errorf("Examples = %v", d.Examples)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse("x", []byte("---\nname: x\n")); err == nil {
		t.Error("unterminated front matter accepted")
	}
	if _, err := Parse("x", []byte("---\nkind: devops\n---\n")); err == nil {
		t.Error("unknown kind accepted")
	}
	if _, err := Parse("x", []byte("---\nname: [\n---\n")); err == nil {
		t.Error("bad yaml accepted")
	}
}

func TestParse_CapabilityLimit(t *testing.T) {
	src := "Features\n- a\n- b\n- c\n- d\n- e\n- f\n"
	d, err := Parse("agent", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Capabilities) != maxCapabilities {
		t.Errorf("Capabilities = %v", d.Capabilities)
	}
	if d.Description != "Features" {
		t.Errorf("Description = %q", d.Description)
	}
}

func TestInferKind(t *testing.T) {
	tests := map[string]agent.Kind{
		"frontend-animation-expert": agent.KindFrontend,
		"security-auditor":          agent.KindSecurity,
		"test-automation-expert":    agent.KindGeneral,
		"auto-workflow-engine":      agent.KindWorkflow,
		"docs-technical-writer":     agent.KindDocs,
		"ai-gemini-specialist":      agent.KindAI,
		"architect-designer":        agent.KindGeneral,
	}
	for id, want := range tests {
		if got := InferKind(id); got != want {
			t.Errorf("InferKind(%q) = %s, want %s", id, got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"backend-api-routes.md": "# Designs HTTP routes\n",
		"mobile-agent.md":       "---\nname: Mobile Agent\n---\nShips apps.\n",
		"broken.md":             "---\nkind: nope\n---\n",
		"README.txt":            "not an agent",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	logs := logstore.New(logstore.Config{MinLevel: logstore.LevelDebug})
	r, err := Load(context.Background(), dir, logs)
	if err != nil {
		t.Fatal(err)
	}

	list := r.List()
	if len(list) != 2 || list[0].ID != "backend-api-routes" || list[1].ID != "mobile-agent" {
		t.Fatalf("List() = %+v", list)
	}
	if task, ok := r.Lookup("mobile-agent"); !ok || task.Kind != agent.KindMobile || task.Name != "Mobile Agent" {
		t.Errorf("Lookup(mobile-agent) = %+v, %v", task, ok)
	}
	if _, ok := r.Lookup("broken"); ok {
		t.Error("broken file was loaded")
	}
	if d, _ := r.Descriptor("backend-api-routes"); d.Path == "" {
		t.Error("Path not recorded")
	}
	if got := r.ByKind(agent.KindBackend); len(got) != 1 {
		t.Errorf("ByKind(backend) = %v", got)
	}
	if got := r.ByCategory("Mobile"); len(got) != 1 {
		t.Errorf("ByCategory(Mobile) = %v", got)
	}

	errs := logs.Query(&logstore.Filter{Levels: []logstore.Level{logstore.LevelError}}, 0)
	if len(errs) != 1 {
		t.Errorf("error entries = %+v", errs)
	}
}

func TestLoad_MissingDirUsesDefaults(t *testing.T) {
	r, err := Load(context.Background(), filepath.Join(t.TempDir(), "none"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != len(Defaults()) {
		t.Errorf("Len() = %d", r.Len())
	}
	if _, ok := r.Lookup("frontend-react"); !ok {
		t.Error("default agent missing")
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d", r.Len())
	}

	if err := os.WriteFile(filepath.Join(dir, "docs-writer.md"), []byte("Writes docs.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Lookup("docs-writer"); !ok {
		t.Error("Reload did not pick up new file")
	}
}
