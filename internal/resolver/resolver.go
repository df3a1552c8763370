// Package resolver answers scheduling questions over a task snapshot:
// which tasks are dependency-satisfied, which one runs next, which ones can
// be batched together, and where the dependency graph is broken.
//
// Every function here is a pure reader. Selection is first-fit in document
// order; priority never reorders it.
package resolver

import (
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// Source is anything that can hand out a task snapshot in document order.
// *store.Store satisfies it.
type Source interface {
	Tasks() []models.Task
}

// Graph indexes a task snapshot by id. Build one per scheduling decision;
// it does not observe later store mutations.
type Graph struct {
	tasks []models.Task
	byID  map[string]int
}

// Build indexes tasks. When ids repeat, the first occurrence wins.
func Build(tasks []models.Task) *Graph {
	g := &Graph{
		tasks: tasks,
		byID:  make(map[string]int, len(tasks)),
	}
	for i := range tasks {
		if _, exists := g.byID[tasks[i].ID]; !exists {
			g.byID[tasks[i].ID] = i
		}
	}
	return g
}

// FromSource snapshots src and indexes it.
func FromSource(src Source) *Graph {
	return Build(src.Tasks())
}

// Tasks returns the indexed snapshot.
func (g *Graph) Tasks() []models.Task {
	return g.tasks
}

// Lookup returns the task with the given id.
func (g *Graph) Lookup(id string) (*models.Task, bool) {
	i, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return &g.tasks[i], true
}

// IsSatisfied reports whether every dependency of task exists and is
// completed. A task without dependencies is always satisfied; a dependency
// on an unknown id is never satisfied.
func (g *Graph) IsSatisfied(task *models.Task) bool {
	for _, dep := range task.Dependencies {
		d, ok := g.Lookup(dep)
		if !ok || d.Status != models.StatusCompleted {
			return false
		}
	}
	return true
}

// NextTask returns the first pending, satisfied task in document order.
func (g *Graph) NextTask() (models.Task, bool) {
	for i := range g.tasks {
		t := &g.tasks[i]
		if t.Status == models.StatusPending && g.IsSatisfied(t) {
			return *t, true
		}
	}
	return models.Task{}, false
}

// ParallelBatch returns up to maxBatch pending, satisfied tasks, none of
// which is a transitive dependency of another in the batch. Each task is
// returned at most once. maxBatch < 1 is treated as 1.
func (g *Graph) ParallelBatch(maxBatch int) []models.Task {
	if maxBatch < 1 {
		maxBatch = 1
	}

	var batch []models.Task
	claimed := make(map[string]bool)
	for i := range g.tasks {
		if len(batch) >= maxBatch {
			break
		}
		t := &g.tasks[i]
		if claimed[t.ID] || t.Status != models.StatusPending || !g.IsSatisfied(t) {
			continue
		}
		if g.relatedToAny(t.ID, batch) {
			continue
		}
		claimed[t.ID] = true
		batch = append(batch, *t)
	}
	return batch
}

// relatedToAny reports whether id depends on, or is depended on by, any
// task already in batch.
func (g *Graph) relatedToAny(id string, batch []models.Task) bool {
	if len(batch) == 0 {
		return false
	}
	ancestors := g.Ancestors(id)
	for _, b := range batch {
		if ancestors[b.ID] || g.Ancestors(b.ID)[id] {
			return true
		}
	}
	return false
}

// Ancestors returns every id reachable by following dependency edges from
// id, excluding id itself unless it lies on a cycle. Unknown ids are
// included as leaves.
func (g *Graph) Ancestors(id string) map[string]bool {
	seen := make(map[string]bool)
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t, ok := g.Lookup(cur)
		if !ok {
			continue
		}
		for _, dep := range t.Dependencies {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return seen
}

// IsSatisfied is Graph.IsSatisfied over a fresh snapshot of src.
func IsSatisfied(task models.Task, src Source) bool {
	return FromSource(src).IsSatisfied(&task)
}

// NextTask is Graph.NextTask over a fresh snapshot of src.
func NextTask(src Source) (models.Task, bool) {
	return FromSource(src).NextTask()
}

// ParallelBatch is Graph.ParallelBatch over a fresh snapshot of src.
func ParallelBatch(src Source, maxBatch int) []models.Task {
	return FromSource(src).ParallelBatch(maxBatch)
}

// FindCycles is Graph.FindCycles over a fresh snapshot of src.
func FindCycles(src Source) []string {
	return FromSource(src).FindCycles()
}

// LongestChain is Graph.LongestChain over a fresh snapshot of src.
func LongestChain(src Source) int {
	return FromSource(src).LongestChain()
}
