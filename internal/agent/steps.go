package agent

import "context"

var setupSteps = []string{
	"Initialize workspace",
	"Analyze request",
	"Plan approach",
}

const completionStep = "Finish"

var kindSteps = map[Kind][]string{
	KindGeneral: {
		"Analyze the problem",
		"Explore solutions",
		"Derive the best solution",
		"Verify the result",
	},
	KindFrontend: {
		"Analyze component structure",
		"Review UI/UX requirements",
		"Implement code",
		"Test responsive layout",
	},
	KindBackend: {
		"Analyze API design",
		"Review data model",
		"Implement server logic",
		"Verify security",
	},
	KindMobile: {
		"Check device compatibility",
		"Optimize touch interface",
		"Profile performance",
		"Verify battery efficiency",
	},
	KindSecurity: {
		"Scan for vulnerabilities",
		"Review security policy",
		"Assess risk",
		"Plan mitigations",
	},
	KindPerformance: {
		"Measure performance metrics",
		"Identify bottlenecks",
		"Apply optimizations",
		"Verify performance",
	},
	KindDocs: {
		"Analyze document structure",
		"Review consistency",
		"Apply updates",
		"Verify quality",
	},
	KindAI: {
		"Prepare model",
		"Preprocess data",
		"Run model",
		"Post-process results",
	},
	KindWorkflow: {
		"Analyze workflow",
		"Identify automation points",
		"Optimize process",
		"Verify efficiency",
	},
}

// Steps returns the ordered step labels for kind: the setup steps, the
// kind's own steps and a final completion step. Unknown kinds use the
// general steps.
func Steps(kind Kind) []string {
	specific, ok := kindSteps[kind]
	if !ok {
		specific = kindSteps[KindGeneral]
	}
	steps := make([]string, 0, len(setupSteps)+len(specific)+1)
	steps = append(steps, setupSteps...)
	steps = append(steps, specific...)
	return append(steps, completionStep)
}

// StepContext describes the step being executed.
type StepContext struct {
	Task   Task
	RunID  string
	Index  int
	Total  int
	Label  string
	Input  string
	Params map[string]any
}

// StepFunc performs the work of one step. A returned error fails the run.
// ctx carries the run's values but is not cancelled by Cancel or the run
// timeout: a started step always finishes. Implementations bound their own
// running time.
type StepFunc func(ctx context.Context, sc StepContext) error

// noopStep is the default unit of work; the inter-step delay stands in for
// real work.
func noopStep(context.Context, StepContext) error { return nil }
