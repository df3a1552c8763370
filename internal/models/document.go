package models

import "time"

// Metadata is the summary block written at the top of every saved document.
type Metadata struct {
	LastUpdated    time.Time `json:"lastUpdated"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
}

// Phase groups tasks in the hierarchical document form.
type Phase struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Tasks       []Task `json:"tasks"`
}

// Document is the persisted task document. It holds either a flat task
// list or a list of phases; Flatten normalizes both into one list.
type Document struct {
	Metadata *Metadata `json:"metadata,omitempty"`
	Tasks    []Task    `json:"tasks,omitempty"`
	Phases   []Phase   `json:"phases,omitempty"`
}

// Flatten returns the tasks in document order. When phases are present
// they take precedence and every task is stamped with its phase name and id.
func (d *Document) Flatten() []Task {
	if len(d.Phases) == 0 {
		tasks := make([]Task, len(d.Tasks))
		copy(tasks, d.Tasks)
		return tasks
	}

	var tasks []Task
	for _, phase := range d.Phases {
		for _, task := range phase.Tasks {
			task.Phase = phase.Name
			task.PhaseID = phase.ID
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// NewDocument builds a flat document with fresh metadata.
func NewDocument(tasks []Task, now time.Time) *Document {
	completed := 0
	for i := range tasks {
		if tasks[i].IsCompleted() {
			completed++
		}
	}
	return &Document{
		Metadata: &Metadata{
			LastUpdated:    now,
			TotalTasks:     len(tasks),
			CompletedTasks: completed,
		},
		Tasks: tasks,
	}
}
