package events

import (
	"github.com/dshills/agentcore/internal/event/topic"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/status"
)

// Event topics.
const (
	// TopicStatusChanged is published whenever a task's status changes.
	TopicStatusChanged topic.Topic = "task.status.changed"

	// TopicProgress is published after every completed step of a run.
	TopicProgress topic.Topic = "task.progress"

	// TopicLogAppended is published for every accepted log entry.
	TopicLogAppended topic.Topic = "log.appended"

	// TopicConnectionChanged is published when a bridge changes state.
	TopicConnectionChanged topic.Topic = "bridge.connection.changed"
)

// Event is implemented only by the types in this package.
type Event interface {
	EventTopic() topic.Topic
	sealed()
}

// StatusChanged reports a task status transition.
type StatusChanged struct {
	TaskID   string        `json:"taskId"`
	Previous status.Status `json:"previous"`
	Status   status.Status `json:"status"`
}

// Progress reports how far a run has advanced.
type Progress struct {
	TaskID string `json:"taskId"`
	RunID  string `json:"runId"`

	// Value is a percentage in [0, 100].
	Value int    `json:"value"`
	Label string `json:"label"`
}

// LogAppended carries a freshly stored log entry.
type LogAppended struct {
	Entry logstore.Entry `json:"entry"`
}

// ConnectionState is the state of an external connection.
type ConnectionState string

// Connection states.
const (
	Disconnected ConnectionState = "disconnected"
	Connected    ConnectionState = "connected"
	Failed       ConnectionState = "error"
)

// ConnectionChanged reports a bridge state transition.
type ConnectionChanged struct {
	Name     string          `json:"name"`
	Previous ConnectionState `json:"previous"`
	Current  ConnectionState `json:"current"`
	Error    string          `json:"error,omitempty"`
}

// EventTopic returns task.status.changed.
func (StatusChanged) EventTopic() topic.Topic { return TopicStatusChanged }

// EventTopic returns task.progress.
func (Progress) EventTopic() topic.Topic { return TopicProgress }

// EventTopic returns log.appended.
func (LogAppended) EventTopic() topic.Topic { return TopicLogAppended }

// EventTopic returns bridge.connection.changed.
func (ConnectionChanged) EventTopic() topic.Topic { return TopicConnectionChanged }

func (StatusChanged) sealed()     {}
func (Progress) sealed()          {}
func (LogAppended) sealed()       {}
func (ConnectionChanged) sealed() {}
