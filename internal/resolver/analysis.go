package resolver

import (
	"sort"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// FindCycles returns the ids of tasks that lie on a dependency cycle, in
// document order. A self-dependency is a cycle of one.
//
// It is Tarjan's strongly connected components walk: a node is only a
// cycle member when it is reached again while still on the current DFS
// stack, so nodes explored from an earlier start are never misreported.
func (g *Graph) FindCycles() []string {
	var (
		next    int
		index   = make(map[string]int)
		low     = make(map[string]int)
		onStack = make(map[string]bool)
		stack   []string
		members = make(map[string]bool)
	)

	var visit func(id string)
	visit = func(id string) {
		index[id] = next
		low[id] = next
		next++
		stack = append(stack, id)
		onStack[id] = true

		t, _ := g.Lookup(id)
		for _, dep := range t.Dependencies {
			if _, ok := g.Lookup(dep); !ok {
				continue
			}
			if _, seen := index[dep]; !seen {
				visit(dep)
				low[id] = min(low[id], low[dep])
			} else if onStack[dep] {
				low[id] = min(low[id], index[dep])
			}
		}

		if low[id] != index[id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		if len(component) > 1 || t.DependsOn(id) {
			for _, c := range component {
				members[c] = true
			}
		}
	}

	for i := range g.tasks {
		if _, seen := index[g.tasks[i].ID]; !seen {
			visit(g.tasks[i].ID)
		}
	}

	var out []string
	for i := range g.tasks {
		if members[g.tasks[i].ID] {
			out = append(out, g.tasks[i].ID)
			delete(members, g.tasks[i].ID)
		}
	}
	return out
}

// LongestChain returns the number of tasks on the longest dependency path
// (edges + 1). Edges back into the current path and edges to unknown ids
// are ignored. An empty graph has length 0.
func (g *Graph) LongestChain() int {
	memo := make(map[string]int)
	onPath := make(map[string]bool)

	// depth reports the chain length starting at id and whether the result
	// is independent of the current path, which is what makes it cacheable.
	var depth func(id string) (int, bool)
	depth = func(id string) (int, bool) {
		if d, ok := memo[id]; ok {
			return d, true
		}
		t, _ := g.Lookup(id)
		onPath[id] = true
		best, clean := 0, true
		for _, dep := range t.Dependencies {
			if _, ok := g.Lookup(dep); !ok {
				continue
			}
			if onPath[dep] {
				clean = false
				continue
			}
			d, c := depth(dep)
			clean = clean && c
			best = max(best, d)
		}
		onPath[id] = false
		if clean {
			memo[id] = best + 1
		}
		return best + 1, clean
	}

	longest := 0
	for i := range g.tasks {
		d, _ := depth(g.tasks[i].ID)
		longest = max(longest, d)
	}
	return longest
}

// MissingDependencies maps task id to the dependency ids that do not exist.
func (g *Graph) MissingDependencies() map[string][]string {
	missing := make(map[string][]string)
	for i := range g.tasks {
		for _, dep := range g.tasks[i].Dependencies {
			if _, ok := g.Lookup(dep); !ok {
				missing[g.tasks[i].ID] = append(missing[g.tasks[i].ID], dep)
			}
		}
	}
	return missing
}

// BlockerKind says why a pending task is not runnable.
type BlockerKind string

const (
	// BlockerMissing: a direct or transitive dependency does not exist.
	BlockerMissing BlockerKind = "missing"
	// BlockerCycle: the task is on, or depends on, a dependency cycle.
	BlockerCycle BlockerKind = "cycle"
	// BlockerWaiting: dependencies exist but are not completed yet.
	BlockerWaiting BlockerKind = "waiting"
)

// Blocker explains a pending task that cannot run. Missing and cycle
// blockers are permanent until the document changes.
type Blocker struct {
	TaskID string      `json:"taskId"`
	Kind   BlockerKind `json:"kind"`
	// On lists the ids responsible: missing ids, cycle members, or the
	// direct dependencies that are not completed.
	On []string `json:"on"`
}

// Permanent reports whether the blocker can only clear by editing the document.
func (b Blocker) Permanent() bool {
	return b.Kind == BlockerMissing || b.Kind == BlockerCycle
}

// Report is the dependency analysis surfaced to operators.
type Report struct {
	TotalDependencies int                 `json:"totalDependencies"`
	Cycles            []string            `json:"cycles"`
	Missing           map[string][]string `json:"missing"`
	LongestChain      int                 `json:"longestChain"`
	EntryPoints       []string            `json:"entryPoints"`
	Runnable          []string            `json:"runnable"`
	Blocked           []Blocker           `json:"blocked"`
}

// Stalled reports whether pending work exists but none of it can ever run
// without editing the document.
func (r Report) Stalled() bool {
	if len(r.Runnable) > 0 || len(r.Blocked) == 0 {
		return false
	}
	for _, b := range r.Blocked {
		if !b.Permanent() {
			return false
		}
	}
	return true
}

// Analyze builds the full dependency report.
func (g *Graph) Analyze() Report {
	r := Report{
		Cycles:       g.FindCycles(),
		Missing:      g.MissingDependencies(),
		LongestChain: g.LongestChain(),
	}

	inCycle := make(map[string]bool, len(r.Cycles))
	for _, id := range r.Cycles {
		inCycle[id] = true
	}

	for i := range g.tasks {
		t := &g.tasks[i]
		r.TotalDependencies += len(t.Dependencies)
		if len(t.Dependencies) == 0 {
			r.EntryPoints = append(r.EntryPoints, t.ID)
		}
		if t.Status != models.StatusPending {
			continue
		}
		if g.IsSatisfied(t) {
			r.Runnable = append(r.Runnable, t.ID)
			continue
		}
		r.Blocked = append(r.Blocked, g.explain(t, inCycle))
	}
	return r
}

// Explain describes why task is not runnable. ok is false when it is.
func (g *Graph) Explain(task models.Task) (Blocker, bool) {
	if task.Status == models.StatusPending && g.IsSatisfied(&task) {
		return Blocker{}, false
	}
	inCycle := make(map[string]bool)
	for _, id := range g.FindCycles() {
		inCycle[id] = true
	}
	return g.explain(&task, inCycle), true
}

func (g *Graph) explain(t *models.Task, inCycle map[string]bool) Blocker {
	reach := g.Ancestors(t.ID)
	var missing, cyclic []string
	for id := range reach {
		if _, ok := g.Lookup(id); !ok {
			missing = append(missing, id)
		} else if inCycle[id] {
			cyclic = append(cyclic, id)
		}
	}
	switch {
	case len(missing) > 0:
		return Blocker{TaskID: t.ID, Kind: BlockerMissing, On: sortedByDocument(g, missing)}
	case len(cyclic) > 0 || inCycle[t.ID]:
		if inCycle[t.ID] && !contains(cyclic, t.ID) {
			cyclic = append(cyclic, t.ID)
		}
		return Blocker{TaskID: t.ID, Kind: BlockerCycle, On: sortedByDocument(g, cyclic)}
	}

	var waiting []string
	for _, dep := range t.Dependencies {
		if d, _ := g.Lookup(dep); d.Status != models.StatusCompleted {
			waiting = append(waiting, dep)
		}
	}
	return Blocker{TaskID: t.ID, Kind: BlockerWaiting, On: waiting}
}

// sortedByDocument orders ids by document position; unknown ids go last
// in lexical order.
func sortedByDocument(g *Graph, ids []string) []string {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	var out []string
	for i := range g.tasks {
		if known[g.tasks[i].ID] {
			out = append(out, g.tasks[i].ID)
			delete(known, g.tasks[i].ID)
		}
	}
	rest := make([]string, 0, len(known))
	for id := range known {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
