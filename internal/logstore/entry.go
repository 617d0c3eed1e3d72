package logstore

import (
	"encoding/json"
	"time"
)

// Well-known entry sources.
const (
	SourceSystem = "system"
	SourceAgent  = "agent"
	SourceBridge = "bridge"
	SourceAPI    = "api"
)

// Entry is one immutable log record.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
}

// UnmarshalJSON reads an entry, taking agentId as the task id when taskId
// is absent.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var raw struct {
		plain
		AgentID string `json:"agentId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry(raw.plain)
	if e.TaskID == "" {
		e.TaskID = raw.AgentID
	}
	return nil
}

// detailsJSON returns the serialized details, or "" when there are none.
func (e Entry) detailsJSON() string {
	if len(e.Details) == 0 {
		return ""
	}
	b, err := json.Marshal(e.Details)
	if err != nil {
		return ""
	}
	return string(b)
}

// cloneDetails deep-copies a details map. Nested maps and slices are
// copied too, so neither the appender nor any reader can reach a stored
// entry's details.
func cloneDetails(d map[string]any) map[string]any {
	if len(d) == 0 {
		return nil
	}
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for k, x := range v {
			out[k] = cloneValue(x)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = cloneValue(x)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}

// clone returns a copy of e that shares no mutable state with it.
func (e Entry) clone() Entry {
	e.Details = cloneDetails(e.Details)
	return e
}
