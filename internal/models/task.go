package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status %q (want pending, in_progress or completed)", s)
}

// CanTransition reports whether a task may move from one status to another.
// Re-applying the current status is always allowed. Completed is terminal,
// and in_progress -> pending is the only way back.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusCompleted || to == StatusPending
	default:
		return false
	}
}

// Priority is an ordering weight. It never locks scheduling order.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	}
	return "", fmt.Errorf("invalid priority %q (want critical, high, medium or low)", s)
}

// IsHigh reports whether the priority is high or critical.
func (p Priority) IsHigh() bool {
	return p == PriorityCritical || p == PriorityHigh
}

// Known agent types used for backend dispatch.
const (
	AgentPlanning       = "planning_agent"
	AgentImplementation = "implementation_agent"
	AgentTesting        = "testing_agent"
	AgentDeployment     = "deployment_agent"
)

// ExecutionContext carries the hints a backend and the policy gate need.
type ExecutionContext struct {
	OutputFiles     []string `json:"output_files,omitempty"`
	TechStack       []string `json:"tech_stack,omitempty"`
	TestingRequired bool     `json:"testing_required,omitempty"`
	Infrastructure  string   `json:"infrastructure,omitempty"`
}

// Task is a single unit of work in the task document.
type Task struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
	Status         Status            `json:"status"`
	Priority       Priority          `json:"priority"`
	Dependencies   []string          `json:"dependencies"`
	AgentType      string            `json:"agent_type,omitempty"`
	Category       string            `json:"category,omitempty"`
	EstimatedHours float64           `json:"estimated_hours,omitempty"`
	LastUpdated    *time.Time        `json:"lastUpdated,omitempty"`
	Phase          string            `json:"phase,omitempty"`
	PhaseID        string            `json:"phaseId,omitempty"`
	Context        *ExecutionContext `json:"execution_context,omitempty"`

	// Extra holds document keys this model does not know about so a
	// load/save cycle does not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownTaskKeys = []string{
	"id", "title", "description", "status", "priority", "dependencies",
	"agent_type", "category", "estimated_hours", "lastUpdated", "phase",
	"phaseId", "execution_context",
}

// taskFields breaks the MarshalJSON/UnmarshalJSON recursion.
type taskFields Task

// UnmarshalJSON decodes a task and keeps unknown keys in Extra.
func (t *Task) UnmarshalJSON(data []byte) error {
	var fields taskFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownTaskKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		fields.Extra = raw
	} else {
		fields.Extra = nil
	}
	*t = Task(fields)
	return nil
}

// MarshalJSON encodes a task, merging back any unknown keys.
func (t Task) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(taskFields(t))
	if err != nil || len(t.Extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range t.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Validate checks the fields every stored task needs.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("task %s: title is required", t.ID)
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	return nil
}

// Normalize fills defaults for fields older documents leave out.
func (t *Task) Normalize() {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Dependencies == nil {
		t.Dependencies = []string{}
	}
}

// IsCompleted returns true if the task status is "completed"
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsPending returns true if the task status is "pending"
func (t *Task) IsPending() bool {
	return t.Status == StatusPending
}

// DependsOn reports whether id is a direct dependency of the task.
func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// OutputFiles returns the declared output artifacts, if any.
func (t *Task) OutputFiles() []string {
	if t.Context == nil {
		return nil
	}
	return t.Context.OutputFiles
}

// Clone returns a deep copy so callers cannot mutate store state.
func (t Task) Clone() Task {
	c := t
	if t.Dependencies != nil {
		c.Dependencies = append([]string{}, t.Dependencies...)
	}
	if t.LastUpdated != nil {
		ts := *t.LastUpdated
		c.LastUpdated = &ts
	}
	if t.Context != nil {
		ctx := *t.Context
		ctx.OutputFiles = append([]string(nil), t.Context.OutputFiles...)
		ctx.TechStack = append([]string(nil), t.Context.TechStack...)
		c.Context = &ctx
	}
	if t.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}
