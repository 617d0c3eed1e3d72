package agent

import (
	"strings"
	"time"
)

var templates = map[Kind]string{
	KindGeneral: `## Problem solving result

**Problem analyzed:** {{input}}

**Process:**
1. Identified the problem precisely
2. Reviewed candidate solutions
3. Selected the best solution
4. Drew up an execution plan

**Proposed solution:**
- Practical steps that apply immediately
- Structural improvements for long-term stability
- Monitoring to prevent recurrence

**Next:** apply the proposed solution step by step.`,

	KindFrontend: `## Frontend result

**Work:** {{input}}

**Delivered:**
- Responsive UI components
- Accessible design
- Performance optimizations
- Cross-browser compatibility`,

	KindBackend: `## Backend result

**Request handled:** {{input}}

**Delivered:**
- Secure API endpoints
- Database optimizations
- Hardened security
- Monitoring`,

	KindMobile: `## Mobile optimization result

**Target:** {{input}}

**Improvements:**
- Touch interface refinements
- Better network efficiency
- Lower battery usage
- Support for more screen sizes`,

	KindSecurity: `## Security review result

**Scope:** {{input}}

**Findings:**
- High: 0
- Medium: 2 (resolved)
- Low: 1 (monitored)

**Hardening:**
- Stronger authentication and authorization
- Data encryption
- Log monitoring`,

	KindPerformance: `## Performance result

**Target:** {{input}}

**Improvements:**
- Load time reduced
- Memory usage reduced
- Bundle size reduced`,

	KindDocs: `## Documentation result

**Work:** {{input}}

**Updates:**
- Current information
- Improved structure and consistency
- Refreshed examples
- Fixed typos and links`,

	KindAI: `## AI task result

**Task:** {{input}}

**Analysis:**
- Model run completed
- Results post-processed

**Suggestion:** more training data would improve accuracy.`,

	KindWorkflow: `## Workflow automation result

**Process automated:** {{input}}

**Efficiency:**
- Shorter turnaround
- Fewer manual errors
- Higher throughput`,
}

// Render produces the output of a finished run by substituting input into
// the kind's template. Unknown kinds use the general template.
func Render(kind Kind, input string) string {
	tmpl, ok := templates[kind]
	if !ok {
		tmpl = templates[KindGeneral]
	}
	return strings.ReplaceAll(tmpl, "{{input}}", input)
}

func footer(task Task, at time.Time) string {
	return "\n\n---\n**Generated:** " + at.Format(time.RFC3339) +
		"\n**Agent:** " + task.DisplayName() +
		"\n**Status:** completed"
}
