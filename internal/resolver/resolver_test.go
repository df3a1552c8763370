package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

func task(id string, status models.Status, deps ...string) models.Task {
	if deps == nil {
		deps = []string{}
	}
	return models.Task{
		ID:           id,
		Title:        "Task " + id,
		Status:       status,
		Priority:     models.PriorityMedium,
		Dependencies: deps,
	}
}

type sliceSource []models.Task

func (s sliceSource) Tasks() []models.Task { return s }

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].ID
	}
	return out
}

func TestIsSatisfied(t *testing.T) {
	src := sliceSource{
		task("done", models.StatusCompleted),
		task("open", models.StatusPending),
		task("busy", models.StatusInProgress),
	}

	tests := []struct {
		name string
		deps []string
		want bool
	}{
		{"no dependencies", nil, true},
		{"completed dependency", []string{"done"}, true},
		{"pending dependency", []string{"open"}, false},
		{"in progress dependency", []string{"busy"}, false},
		{"missing dependency", []string{"ghost"}, false},
		{"mixed", []string{"done", "ghost"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSatisfied(task("x", models.StatusPending, tt.deps...), src))
		})
	}
}

func TestNextTask_FirstFitIgnoresPriority(t *testing.T) {
	a := task("A", models.StatusPending)
	a.Priority = models.PriorityLow
	b := task("B", models.StatusPending)
	b.Priority = models.PriorityCritical

	got, ok := NextTask(sliceSource{a, b})

	require.True(t, ok)
	assert.Equal(t, "A", got.ID)
}

func TestNextTask_SkipsNonPendingAndUnsatisfied(t *testing.T) {
	src := sliceSource{
		task("1", models.StatusCompleted),
		task("2", models.StatusInProgress),
		task("3", models.StatusPending, "2"),
		task("4", models.StatusPending, "1"),
	}

	got, ok := NextTask(src)

	require.True(t, ok)
	assert.Equal(t, "4", got.ID)
}

func TestNextTask_CompletingDependencyUnblocks(t *testing.T) {
	x := task("X", models.StatusPending)
	y := task("Y", models.StatusPending, "X")

	got, ok := NextTask(sliceSource{y, x})
	require.True(t, ok)
	assert.Equal(t, "X", got.ID)

	x.Status = models.StatusCompleted
	got, ok = NextTask(sliceSource{y, x})
	require.True(t, ok)
	assert.Equal(t, "Y", got.ID)
}

func TestNextTask_MissingDependencyNeverRuns(t *testing.T) {
	src := sliceSource{task("1", models.StatusPending, "ghost")}

	_, ok := NextTask(src)
	assert.False(t, ok)
}

func TestNextTask_CycleNeverRuns(t *testing.T) {
	src := sliceSource{
		task("A", models.StatusPending, "B"),
		task("B", models.StatusPending, "A"),
	}

	_, ok := NextTask(src)
	assert.False(t, ok)
	assert.Equal(t, []string{"A", "B"}, FindCycles(src))
}

func TestNextTask_Empty(t *testing.T) {
	_, ok := NextTask(sliceSource{})
	assert.False(t, ok)
}

func TestParallelBatch(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []models.Task
		maxBatch int
		want     []string
	}{
		{
			name: "independent roots",
			tasks: []models.Task{
				task("a", models.StatusPending),
				task("b", models.StatusPending),
				task("c", models.StatusPending, "a"),
			},
			maxBatch: 3,
			want:     []string{"a", "b"},
		},
		{
			name: "siblings of a completed parent",
			tasks: []models.Task{
				task("a", models.StatusCompleted),
				task("b", models.StatusPending, "a"),
				task("c", models.StatusPending, "a"),
			},
			maxBatch: 3,
			want:     []string{"b", "c"},
		},
		{
			name: "limit respected",
			tasks: []models.Task{
				task("a", models.StatusPending),
				task("b", models.StatusPending),
				task("c", models.StatusPending),
			},
			maxBatch: 2,
			want:     []string{"a", "b"},
		},
		{
			name: "non-positive limit means one",
			tasks: []models.Task{
				task("a", models.StatusPending),
				task("b", models.StatusPending),
			},
			maxBatch: 0,
			want:     []string{"a"},
		},
		{
			name: "transitively related tasks are not batched",
			tasks: []models.Task{
				task("p", models.StatusPending),
				task("m", models.StatusCompleted, "p"),
				task("q", models.StatusPending, "m"),
			},
			maxBatch: 3,
			want:     []string{"p"},
		},
		{
			name:     "nothing ready",
			tasks:    []models.Task{task("a", models.StatusPending, "ghost")},
			maxBatch: 3,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParallelBatch(sliceSource(tt.tasks), tt.maxBatch)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestParallelBatch_NoRepeats(t *testing.T) {
	src := sliceSource{
		task("a", models.StatusPending),
		task("a", models.StatusPending),
		task("b", models.StatusPending),
	}

	got := ParallelBatch(src, 5)

	seen := map[string]bool{}
	for _, tk := range got {
		assert.False(t, seen[tk.ID], "task %s returned twice", tk.ID)
		seen[tk.ID] = true
	}
}

func TestFindCycles(t *testing.T) {
	tests := []struct {
		name  string
		tasks []models.Task
		want  []string
	}{
		{
			name:  "acyclic",
			tasks: []models.Task{task("a", models.StatusPending), task("b", models.StatusPending, "a")},
			want:  nil,
		},
		{
			name:  "self dependency",
			tasks: []models.Task{task("a", models.StatusPending, "a"), task("b", models.StatusPending)},
			want:  []string{"a"},
		},
		{
			name: "three node ring with a tail",
			tasks: []models.Task{
				task("tail", models.StatusPending, "x"),
				task("x", models.StatusPending, "y"),
				task("y", models.StatusPending, "z"),
				task("z", models.StatusPending, "x"),
			},
			want: []string{"x", "y", "z"},
		},
		{
			name: "member reached through an explored branch",
			tasks: []models.Task{
				task("r", models.StatusPending, "Y", "X"),
				task("X", models.StatusPending, "Y"),
				task("Y", models.StatusPending, "r"),
			},
			want: []string{"r", "X", "Y"},
		},
		{
			name: "missing ids are not cycles",
			tasks: []models.Task{
				task("a", models.StatusPending, "ghost"),
			},
			want: nil,
		},
		{
			name: "two separate cycles",
			tasks: []models.Task{
				task("a", models.StatusPending, "b"),
				task("b", models.StatusPending, "a"),
				task("c", models.StatusPending, "a"),
				task("d", models.StatusPending, "e"),
				task("e", models.StatusPending, "d"),
			},
			want: []string{"a", "b", "d", "e"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindCycles(sliceSource(tt.tasks)))
		})
	}
}

func TestLongestChain(t *testing.T) {
	tests := []struct {
		name  string
		tasks []models.Task
		want  int
	}{
		{"empty", nil, 0},
		{"single", []models.Task{task("a", models.StatusPending)}, 1},
		{
			name: "linear chain",
			tasks: []models.Task{
				task("c", models.StatusPending, "b"),
				task("b", models.StatusPending, "a"),
				task("a", models.StatusPending),
			},
			want: 3,
		},
		{
			name: "diamond",
			tasks: []models.Task{
				task("a", models.StatusPending),
				task("b", models.StatusPending, "a"),
				task("c", models.StatusPending, "a"),
				task("d", models.StatusPending, "b", "c"),
			},
			want: 3,
		},
		{
			name: "two cycle counts each node once",
			tasks: []models.Task{
				task("a", models.StatusPending, "b"),
				task("b", models.StatusPending, "a"),
			},
			want: 2,
		},
		{
			name: "missing dependency ignored",
			tasks: []models.Task{
				task("a", models.StatusPending, "ghost"),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LongestChain(sliceSource(tt.tasks)))
		})
	}
}

func TestLongestChain_CycleDoesNotPoisonMemo(t *testing.T) {
	// b is first reached through a, where its edge back to a is cut. A later
	// start at c must still see the full a-b path below it.
	src := sliceSource{
		task("a", models.StatusPending, "b"),
		task("b", models.StatusPending, "a"),
		task("c", models.StatusPending, "b"),
	}

	assert.Equal(t, 3, LongestChain(src))
}

func TestAnalyze(t *testing.T) {
	g := Build([]models.Task{
		task("a", models.StatusCompleted),
		task("b", models.StatusPending, "a"),
		task("c", models.StatusPending, "ghost"),
		task("d", models.StatusPending, "c"),
		task("e", models.StatusPending, "f"),
		task("f", models.StatusPending, "e"),
		task("g", models.StatusPending, "b"),
	})

	r := g.Analyze()

	assert.Equal(t, 6, r.TotalDependencies)
	assert.Equal(t, []string{"e", "f"}, r.Cycles)
	assert.Equal(t, map[string][]string{"c": {"ghost"}}, r.Missing)
	assert.Equal(t, []string{"a"}, r.EntryPoints)
	assert.Equal(t, []string{"b"}, r.Runnable)
	assert.Equal(t, 3, r.LongestChain)
	assert.False(t, r.Stalled())

	byTask := map[string]Blocker{}
	for _, b := range r.Blocked {
		byTask[b.TaskID] = b
	}
	require.Len(t, byTask, 5)
	assert.Equal(t, Blocker{TaskID: "c", Kind: BlockerMissing, On: []string{"ghost"}}, byTask["c"])
	assert.Equal(t, Blocker{TaskID: "d", Kind: BlockerMissing, On: []string{"ghost"}}, byTask["d"])
	assert.Equal(t, Blocker{TaskID: "e", Kind: BlockerCycle, On: []string{"e", "f"}}, byTask["e"])
	assert.Equal(t, Blocker{TaskID: "g", Kind: BlockerWaiting, On: []string{"b"}}, byTask["g"])
	assert.True(t, byTask["d"].Permanent())
	assert.False(t, byTask["g"].Permanent())
}

func TestAnalyze_StalledWhenOnlyCyclesRemain(t *testing.T) {
	g := Build([]models.Task{
		task("a", models.StatusCompleted),
		task("x", models.StatusPending, "y"),
		task("y", models.StatusPending, "x"),
	})

	assert.True(t, g.Analyze().Stalled())
}

func TestExplain(t *testing.T) {
	g := Build([]models.Task{
		task("a", models.StatusPending),
		task("b", models.StatusPending, "a"),
	})

	_, blocked := g.Explain(task("a", models.StatusPending))
	assert.False(t, blocked)

	b, blocked := g.Explain(task("b", models.StatusPending, "a"))
	require.True(t, blocked)
	assert.Equal(t, BlockerWaiting, b.Kind)
	assert.Equal(t, []string{"a"}, b.On)
}
