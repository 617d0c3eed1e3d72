package agent

import (
	"encoding/json"
	"time"

	"github.com/dshills/agentcore/internal/logstore"
)

// Result is the outcome of a run. Error is "aborted" or "timeout" for a
// stopped run and the step's error message for a failed one.
type Result struct {
	Success       bool
	Output        string
	Error         string
	ExecutionTime time.Duration
	Metadata      map[string]any
}

type resultJSON struct {
	Success         bool           `json:"success"`
	Output          string         `json:"output"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON writes the execution time in milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Success:         r.Success,
		Output:          r.Output,
		Error:           r.Error,
		ExecutionTimeMs: r.ExecutionTime.Milliseconds(),
		Metadata:        r.Metadata,
	})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var v resultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Result{
		Success:       v.Success,
		Output:        v.Output,
		Error:         v.Error,
		ExecutionTime: time.Duration(v.ExecutionTimeMs) * time.Millisecond,
		Metadata:      v.Metadata,
	}
	return nil
}

// RunOptions are per-run settings.
type RunOptions struct {
	// Timeout bounds the run; zero uses the executor default.
	Timeout time.Duration

	Params map[string]any

	// OnProgress is called after every step with the percentage done.
	OnProgress func(progress int, label string)

	// OnLog receives every entry the log store accepted for this run.
	OnLog func(entry logstore.Entry)
}
