// Package complexity scores tasks for reporting. Scores never influence
// scheduling order.
package complexity

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// Score bounds.
const (
	MinScore = 1.0
	MaxScore = 5.0
)

// Raw factor caps. A factor at or above its cap normalizes to MaxScore.
const (
	depsPerPoint     = 0.5   // raw points per dependency
	depsCap          = 2.0   // reached at 4 dependencies
	descCharsPerUnit = 100.0 // raw points per 100 description characters
	descCap          = 2.0   // reached at 200 characters
	techBase         = 1.0
	techHighStep     = 0.8
	techMediumStep   = 0.4
	techCap          = 3.0
)

// Technical difficulty keywords, matched as whole words in title and
// description.
var (
	HighKeywords   = []string{"authentication", "security", "encryption", "real-time", "websocket", "api", "database", "optimization"}
	MediumKeywords = []string{"frontend", "backend", "testing", "deployment", "integration", "ui", "ux"}
)

// Weights are the factor weights. They must sum to 1.
type Weights struct {
	Dependencies float64 `json:"dependencies" yaml:"dependencies"`
	Description  float64 `json:"description" yaml:"description"`
	Priority     float64 `json:"priority" yaml:"priority"`
	Technical    float64 `json:"technical" yaml:"technical"`
}

// DefaultWeights favour dependency fan-in slightly over the other factors.
var DefaultWeights = Weights{
	Dependencies: 0.3,
	Description:  0.2,
	Priority:     0.25,
	Technical:    0.25,
}

func (w Weights) sum() float64 {
	return w.Dependencies + w.Description + w.Priority + w.Technical
}

// Validate checks the weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Dependencies < 0 || w.Description < 0 || w.Priority < 0 || w.Technical < 0 {
		return fmt.Errorf("complexity weights must be non-negative: %+v", w)
	}
	if math.Abs(w.sum()-1) > 1e-9 {
		return fmt.Errorf("complexity weights must sum to 1, got %.3f", w.sum())
	}
	return nil
}

// Factors are the four normalized inputs to a score, each in [1,5].
type Factors struct {
	Dependencies float64 `json:"dependencies"`
	Description  float64 `json:"description"`
	Priority     float64 `json:"priority"`
	Technical    float64 `json:"technical"`
}

// Scorer computes complexity scores. The zero value is not usable; use New.
type Scorer struct {
	weights Weights
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights replaces DefaultWeights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// New creates a Scorer.
func New(opts ...Option) (*Scorer, error) {
	s := &Scorer{weights: DefaultWeights}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

var defaultScorer = &Scorer{weights: DefaultWeights}

// Score scores task with DefaultWeights.
func Score(task models.Task) float64 {
	return defaultScorer.Score(task)
}

// Score returns the weighted sum of the task's normalized factors,
// clamped to [MinScore, MaxScore].
func (s *Scorer) Score(task models.Task) float64 {
	f := s.Factors(task)
	w := s.weights
	score := f.Dependencies*w.Dependencies +
		f.Description*w.Description +
		f.Priority*w.Priority +
		f.Technical*w.Technical
	return clamp(score)
}

// Factors normalizes each raw factor onto [1,5].
func (s *Scorer) Factors(task models.Task) Factors {
	deps := math.Min(float64(len(task.Dependencies))*depsPerPoint, depsCap)
	desc := math.Min(float64(len([]rune(task.Description)))/descCharsPerUnit, descCap)
	tech := TechnicalDifficulty(task)

	return Factors{
		Dependencies: normalize(deps, depsCap),
		Description:  normalize(desc, descCap),
		Priority:     normalize(priorityWeight(task.Priority), 1),
		Technical:    normalize(tech-techBase, techCap-techBase),
	}
}

// priorityWeight maps a priority onto (0,1].
func priorityWeight(p models.Priority) float64 {
	switch p {
	case models.PriorityCritical:
		return 1
	case models.PriorityHigh:
		return 0.8
	case models.PriorityLow:
		return 0.2
	default:
		return 0.4
	}
}

// TechnicalDifficulty estimates difficulty from keywords in the title and
// description: 1 plus 0.8 per high and 0.4 per medium keyword, capped at 3.
func TechnicalDifficulty(task models.Task) float64 {
	words := wordSet(task.Title + " " + task.Description)
	difficulty := techBase
	for _, kw := range HighKeywords {
		if words[kw] {
			difficulty += techHighStep
		}
	}
	for _, kw := range MediumKeywords {
		if words[kw] {
			difficulty += techMediumStep
		}
	}
	return math.Min(difficulty, techCap)
}

// wordSet lowercases text and splits it on anything that is not a letter,
// digit or hyphen.
func wordSet(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, "-")] = true
		set[f] = true
	}
	return set
}

func normalize(raw, rawMax float64) float64 {
	if rawMax <= 0 {
		return MinScore
	}
	return MinScore + (MaxScore-MinScore)*math.Min(math.Max(raw, 0), rawMax)/rawMax
}

func clamp(score float64) float64 {
	return math.Min(math.Max(score, MinScore), MaxScore)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
