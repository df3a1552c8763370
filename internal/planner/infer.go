package planner

import (
	"strings"
	"unicode"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// Keywords are matched as whole lower-case words.
var (
	agentKeywords = []struct {
		agent string
		words []string
	}{
		{models.AgentPlanning, []string{"plan", "planning", "design", "research", "requirements", "analyze", "analysis", "architecture"}},
		{models.AgentTesting, []string{"test", "tests", "testing", "qa", "verify", "validation"}},
		{models.AgentDeployment, []string{"deploy", "deployment", "release", "ship", "rollout", "ci", "cd"}},
	}

	criticalWords = []string{"critical", "urgent", "blocker", "security"}
	highWords     = []string{"important", "core", "auth", "authentication", "database", "api"}
	lowWords      = []string{"optional", "docs", "documentation", "polish", "cleanup", "nice-to-have"}

	// baseHours is the default estimate per agent type.
	baseHours = map[string]float64{
		models.AgentPlanning:       2,
		models.AgentImplementation: 4,
		models.AgentTesting:        3,
		models.AgentDeployment:     2,
	}
)

// inferAgent picks an agent type from the phase name first, then the task
// text. Anything unmatched is implementation work.
func inferAgent(phase, text string) string {
	for _, source := range []string{phase, text} {
		words := wordSet(source)
		for _, k := range agentKeywords {
			if anyWord(words, k.words) {
				return k.agent
			}
		}
	}
	return models.AgentImplementation
}

func inferPriority(text string) models.Priority {
	words := wordSet(text)
	switch {
	case anyWord(words, criticalWords):
		return models.PriorityCritical
	case anyWord(words, highWords):
		return models.PriorityHigh
	case anyWord(words, lowWords):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

// inferEstimate adds an hour per 200 characters of description to the
// agent's base estimate.
func inferEstimate(agent, description string) float64 {
	base, ok := baseHours[agent]
	if !ok {
		base = baseHours[models.AgentImplementation]
	}
	return base + float64(len(description)/200)
}

func wordSet(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func anyWord(set map[string]bool, words []string) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}
