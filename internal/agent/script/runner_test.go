package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/status"
)

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func stepContext(kind agent.Kind, index int) agent.StepContext {
	return agent.StepContext{
		Task:   agent.Task{ID: "t-" + string(kind), Kind: kind},
		Index:  index,
		Total:  8,
		Label:  "Analyze request",
		Input:  "hello",
		Params: map[string]any{"retries": 2, "tags": []any{"a", "b"}},
	}
}

func TestLoad_MissingDir(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Kinds()) != 0 || r.HasDefault() || r.StepFunc(agent.KindAI) != nil {
		t.Error("empty runner should have no scripts")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := writeScripts(t, map[string]string{"frontend.lua": "x = 1"})
	if _, err := Load(dir, nil); err == nil || !strings.Contains(err.Error(), "no global function step") {
		t.Errorf("Load() = %v", err)
	}

	dir = writeScripts(t, map[string]string{"backend.lua": "function step( end"})
	if _, err := Load(dir, nil); err == nil {
		t.Error("Load() accepted a syntax error")
	}
}

func TestRunner_StepArguments(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"frontend.lua": `
function step(label, index, input, params)
  if label ~= "Analyze request" then return false, "label " .. label end
  if index ~= 2 then return false, "index " .. index end
  if input ~= "hello" then return false, "input" end
  if params.retries ~= 2 or params.tags[2] ~= "b" then return false, "params" end
  return true
end`,
		"notes.txt":  "ignored",
		"devops.lua": "ignored = true",
	})
	r, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if got := r.Kinds(); len(got) != 1 || got[0] != agent.KindFrontend {
		t.Fatalf("Kinds() = %v", got)
	}
	if err := r.StepFunc(agent.KindFrontend)(context.Background(), stepContext(agent.KindFrontend, 1)); err != nil {
		t.Errorf("step() = %v", err)
	}
	if r.StepFunc(agent.KindBackend) != nil {
		t.Error("backend has no script and no default")
	}
}

func TestRunner_Failures(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"security.lua": `function step() error("scanner offline") end`,
		"docs.lua":     `function step() return false, "broken link" end`,
		"ai.lua":       `function step() return false end`,
	})
	r, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	tests := []struct {
		kind agent.Kind
		want string
	}{
		{agent.KindSecurity, "scanner offline"},
		{agent.KindDocs, "broken link"},
		{agent.KindAI, "step returned false"},
	}
	for _, tt := range tests {
		err := r.StepFunc(tt.kind)(context.Background(), stepContext(tt.kind, 0))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: step() = %v, want %q", tt.kind, err, tt.want)
		}
	}
}

func TestRunner_Sandbox(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"default.lua": `
function step()
  if os ~= nil or io ~= nil or dofile ~= nil or load ~= nil or require ~= nil then
    return false, "unsafe global exposed"
  end
  return true
end`,
	})
	r, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if !r.HasDefault() {
		t.Fatal("default.lua not loaded")
	}
	if err := r.StepFunc(agent.KindMobile)(context.Background(), stepContext(agent.KindMobile, 0)); err != nil {
		t.Error(err)
	}
}

func TestRunner_Logging(t *testing.T) {
	logs := logstore.New(logstore.Config{MinLevel: logstore.LevelDebug})
	dir := writeScripts(t, map[string]string{
		"backend.lua": `
function step(label)
  print("at", label)
  log("warn", "slow database")
  return true
end`,
	})
	r, err := Load(dir, logs)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.StepFunc(agent.KindBackend)(context.Background(), stepContext(agent.KindBackend, 0)); err != nil {
		t.Fatal(err)
	}
	entries := logs.Query(nil, 0)
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Level != logstore.LevelWarn || entries[0].TaskID != "t-backend" {
		t.Errorf("log() entry = %+v", entries[0])
	}
	if entries[1].Level != logstore.LevelDebug || entries[1].Message != "at\tAnalyze request" {
		t.Errorf("print entry = %+v", entries[1])
	}
}

func TestRunner_Timeout(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"workflow.lua": `function step() while true do end end`,
	})
	r, err := Load(dir, nil, WithStepTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	err = r.StepFunc(agent.KindWorkflow)(context.Background(), stepContext(agent.KindWorkflow, 0))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("step() = %v, want deadline exceeded", err)
	}
}

func TestRunner_WithExecutor(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"frontend.lua": `function step(label, index) if index == 4 then error("lint failed") end return true end`,
	})
	logs := logstore.New(logstore.DefaultConfig())
	r, err := Load(dir, logs)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	task := agent.Task{ID: "fe", Name: "Frontend", Kind: agent.KindFrontend}
	exec := agent.NewExecutor(agent.ExecutorConfig{}, agent.NewTaskMap(task), status.NewTable(), logs, r.ExecutorOptions()...)

	result, err := exec.Run(context.Background(), task, "x", agent.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success || !strings.Contains(result.Error, "lint failed") {
		t.Errorf("result = %+v", result)
	}
	if got := exec.Statuses().Get("fe"); got != status.Error {
		t.Errorf("status = %s", got)
	}
}

func TestRunner_StepFinishesAfterCancel(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"frontend.lua": `
function step(label, index)
  if index == 2 then
    log("info", "step-begin")
    local n = 0
    for i = 1, 200000 do n = n + i end
    log("info", "step-end")
  end
  return true
end`,
	})
	logs := logstore.New(logstore.DefaultConfig())
	r, err := Load(dir, logs)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	task := agent.Task{ID: "fe", Name: "Frontend", Kind: agent.KindFrontend}
	exec := agent.NewExecutor(agent.ExecutorConfig{}, agent.NewTaskMap(task), status.NewTable(), logs, r.ExecutorOptions()...)
	logs.OnAppend(func(e logstore.Entry) {
		if e.Message == "step-begin" {
			exec.Cancel("fe")
		}
	})

	result, err := exec.Run(context.Background(), task, "x", agent.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Error != "aborted" {
		t.Errorf("result = %+v, want aborted", result)
	}
	if n := len(logs.Query(&logstore.Filter{Search: "step-end"}, 0)); n != 1 {
		t.Errorf("step-end logged %d times, want 1", n)
	}
	if got := exec.Statuses().Get("fe"); got != status.Idle {
		t.Errorf("status = %s, want idle", got)
	}
}
