package agent

import (
	"strings"
	"testing"
)

func TestSteps(t *testing.T) {
	for _, k := range Kinds() {
		steps := Steps(k)
		if len(steps) != 8 {
			t.Errorf("Steps(%s) has %d steps, want 8", k, len(steps))
		}
		if steps[0] != setupSteps[0] || steps[len(steps)-1] != completionStep {
			t.Errorf("Steps(%s) = %v", k, steps)
		}
	}

	if got, want := strings.Join(Steps("unknown"), "|"), strings.Join(Steps(KindGeneral), "|"); got != want {
		t.Errorf("unknown kind steps = %s", got)
	}
}

func TestSteps_Deterministic(t *testing.T) {
	a := Steps(KindBackend)
	a[0] = "mutated"
	if Steps(KindBackend)[0] != setupSteps[0] {
		t.Error("Steps shares its backing array")
	}
}

func TestRender(t *testing.T) {
	for _, k := range Kinds() {
		out := Render(k, "ship the login page")
		if !strings.Contains(out, "ship the login page") {
			t.Errorf("Render(%s) missing input:\n%s", k, out)
		}
		if strings.Contains(out, "{{input}}") {
			t.Errorf("Render(%s) left a placeholder", k)
		}
	}
	if Render("quantum", "x") != Render(KindGeneral, "x") {
		t.Error("unknown kind must fall back to general")
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"frontend":        KindFrontend,
		"  AI ":           KindAI,
		"general-purpose": KindGeneral,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("devops"); err == nil {
		t.Error("ParseKind(devops) should fail")
	}
}

func TestProgressAt(t *testing.T) {
	want := []int{13, 25, 38, 50, 63, 75, 88, 100}
	for i, w := range want {
		if got := progressAt(i, 8); got != w {
			t.Errorf("progressAt(%d, 8) = %d, want %d", i, got, w)
		}
	}
	if got := progressAt(0, 3); got != 33 {
		t.Errorf("progressAt(0, 3) = %d", got)
	}
}
