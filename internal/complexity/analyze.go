package complexity

import (
	"fmt"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// Level is the qualitative band of a score.
type Level string

const (
	LevelNone     Level = "none"
	LevelVeryLow  Level = "very-low"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very-high"
)

// LevelFor maps a score onto its band.
func LevelFor(score float64) Level {
	switch {
	case score >= 4:
		return LevelVeryHigh
	case score >= 3:
		return LevelHigh
	case score >= 2:
		return LevelMedium
	case score >= 1.5:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// Recommendation messages.
const (
	RecNoTasks         = "No tasks to analyze"
	RecBreakDown       = "Break down complex tasks into smaller subtasks"
	RecRebalance       = "Rebalance task priorities to avoid bottlenecks"
	RecSimplifyChains  = "Simplify dependency chains for better parallel execution"
	RecWellBalanced    = "Project complexity is well-balanced"
	recFocusFormat     = "Focus on %d high-complexity tasks first"
	breakDownThreshold = 3.5
	complexThreshold   = 4.0
	highPriorityRatio  = 0.6
	manyDependencies   = 2
)

// Breakdown is one task's score and the factors behind it.
type Breakdown struct {
	TaskID  string  `json:"id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Level   Level   `json:"level"`
	Factors Factors `json:"factors"`
}

// Analysis is the project-level complexity report.
type Analysis struct {
	Score             float64     `json:"score"`
	Level             Level       `json:"level"`
	TotalTasks        int         `json:"totalTasks"`
	AverageComplexity float64     `json:"averageComplexity"`
	HighPriorityTasks int         `json:"highPriorityTasks"`
	ComplexTasks      []Breakdown `json:"complexTasks"`
	Tasks             []Breakdown `json:"tasks"`
	Recommendations   []string    `json:"recommendations"`
}

// Analyze scores tasks with DefaultWeights.
func Analyze(tasks []models.Task) Analysis {
	return defaultScorer.Analyze(tasks)
}

// Breakdown scores a single task.
func (s *Scorer) Breakdown(task models.Task) Breakdown {
	score := s.Score(task)
	return Breakdown{
		TaskID:  task.ID,
		Title:   task.Title,
		Score:   round1(score),
		Level:   LevelFor(score),
		Factors: s.Factors(task),
	}
}

// Analyze averages per-task scores and derives recommendations. The
// result depends only on tasks.
func (s *Scorer) Analyze(tasks []models.Task) Analysis {
	if len(tasks) == 0 {
		return Analysis{
			Score:           0,
			Level:           LevelNone,
			Recommendations: []string{RecNoTasks},
		}
	}

	a := Analysis{TotalTasks: len(tasks)}
	total := 0.0
	for _, task := range tasks {
		score := s.Score(task)
		total += score
		b := s.Breakdown(task)
		a.Tasks = append(a.Tasks, b)
		if task.Priority.IsHigh() {
			a.HighPriorityTasks++
		}
		if score > complexThreshold {
			a.ComplexTasks = append(a.ComplexTasks, b)
		}
	}

	a.AverageComplexity = total / float64(len(tasks))
	a.Score = round1(a.AverageComplexity)
	a.Level = LevelFor(a.AverageComplexity)
	a.Recommendations = recommend(a, tasks)
	return a
}

func recommend(a Analysis, tasks []models.Task) []string {
	var recs []string
	if a.AverageComplexity > breakDownThreshold {
		recs = append(recs, RecBreakDown)
	}
	if float64(a.HighPriorityTasks) > float64(a.TotalTasks)*highPriorityRatio {
		recs = append(recs, RecRebalance)
	}
	if n := len(a.ComplexTasks); n > 0 {
		recs = append(recs, fmt.Sprintf(recFocusFormat, n))
	}
	for _, t := range tasks {
		if len(t.Dependencies) > manyDependencies {
			recs = append(recs, RecSimplifyChains)
			break
		}
	}
	if len(recs) == 0 {
		recs = append(recs, RecWellBalanced)
	}
	return recs
}
