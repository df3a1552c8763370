// Package rules is the policy gate: regex rules run over source files, and
// any violation whose action is block stops the task that produced it.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Action is what a violation asks the caller to do.
type Action string

const (
	ActionBlock Action = "block"
	ActionWarn  Action = "warn"
	ActionInfo  Action = "info"
	// ActionError marks a file the engine could not check. It never blocks.
	ActionError Action = "error"
)

// Severity ranks violations for reporting.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityError    Severity = "error"
)

// Categories used by the default rules.
const (
	CategorySecurity        = "security"
	CategoryCompliance      = "compliance"
	CategoryPerformance     = "performance"
	CategoryMaintainability = "maintainability"
	CategorySystem          = "system"
)

var (
	// ErrRuleNotFound indicates an unknown rule id.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrInvalidRule indicates a rule that cannot be added.
	ErrInvalidRule = errors.New("invalid rule")
)

// Rule is a single regex check.
type Rule struct {
	ID           string    `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	Category     string    `yaml:"category" json:"category"`
	Severity     Severity  `yaml:"severity" json:"severity"`
	Description  string    `yaml:"description" json:"description"`
	Pattern      string    `yaml:"pattern" json:"pattern"`
	Action       Action    `yaml:"action" json:"action"`
	Enterprise   bool      `yaml:"enterprise" json:"enterprise"`
	Enabled      bool      `yaml:"enabled" json:"enabled"`
	Created      time.Time `yaml:"created,omitempty" json:"created,omitempty"`
	LastModified time.Time `yaml:"last_modified,omitempty" json:"lastModified,omitempty"`

	re *regexp.Regexp
}

// Validate checks required fields and compiles the pattern.
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	}
	switch r.Action {
	case ActionBlock, ActionWarn, ActionInfo:
	default:
		return fmt.Errorf("%w: rule %s has action %q (want block, warn or info)", ErrInvalidRule, r.ID, r.Action)
	}
	if r.Pattern == "" {
		return fmt.Errorf("%w: rule %s has an empty pattern", ErrInvalidRule, r.ID)
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("%w: rule %s pattern: %v", ErrInvalidRule, r.ID, err)
	}
	r.re = re
	return nil
}

// Violation is one rule match in one file.
type Violation struct {
	RuleID      string    `json:"ruleId"`
	RuleName    string    `json:"ruleName"`
	Category    string    `json:"category"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	File        string    `json:"file"`
	Line        int       `json:"line"`
	Matches     int       `json:"matches"`
	Action      Action    `json:"action"`
	Enterprise  bool      `json:"enterprise"`
	Timestamp   time.Time `json:"timestamp"`
}

// Blocking reports whether the violation must stop execution.
func (v Violation) Blocking() bool {
	return v.Action == ActionBlock
}

// FirstBlocking returns the first blocking violation, if any.
func FirstBlocking(violations []Violation) (Violation, bool) {
	for _, v := range violations {
		if v.Blocking() {
			return v, true
		}
	}
	return Violation{}, false
}

// HasBlocking reports whether any violation blocks.
func HasBlocking(violations []Violation) bool {
	_, ok := FirstBlocking(violations)
	return ok
}

// Engine holds the rule set and the violations it has reported.
// Safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	rules      map[string]*Rule
	order      []string
	violations []Violation
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	defaults bool
	now      func() time.Time
}

// WithoutDefaults starts the engine with an empty rule set.
func WithoutDefaults() Option {
	return func(o *engineOptions) { o.defaults = false }
}

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// NewEngine creates an Engine loaded with DefaultRules.
func NewEngine(opts ...Option) *Engine {
	o := engineOptions{defaults: true, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	e := &Engine{rules: make(map[string]*Rule), now: o.now}
	if o.defaults {
		for _, r := range DefaultRules() {
			if err := e.Add(r); err != nil {
				panic(fmt.Sprintf("default rule %s: %v", r.ID, err))
			}
		}
	}
	return e
}

// Add inserts or replaces a rule. New rules start enabled.
func (e *Engine) Add(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	now := e.now().UTC()
	r.Enabled = true
	if r.Created.IsZero() {
		r.Created = now
	}
	r.LastModified = now

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rules[r.ID]; !exists {
		e.order = append(e.order, r.ID)
	}
	e.rules[r.ID] = &r
	return nil
}

// Remove deletes a rule. It reports whether the rule existed.
func (e *Engine) Remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[id]; !ok {
		return false
	}
	delete(e.rules, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

// Enable turns a rule on.
func (e *Engine) Enable(id string) error {
	return e.setEnabled(id, true)
}

// Disable turns a rule off.
func (e *Engine) Disable(id string) error {
	return e.setEnabled(id, false)
}

func (e *Engine) setEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	r.Enabled = enabled
	r.LastModified = e.now().UTC()
	return nil
}

// Rules returns copies of all rules in insertion order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.rules[id])
	}
	return out
}

// Get returns a copy of one rule.
func (e *Engine) Get(id string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[id]
	if !ok {
		return Rule{}, false
	}
	return *r, true
}

// Summary counts rules by state, category and severity.
type Summary struct {
	Total      int              `json:"total"`
	Enabled    int              `json:"enabled"`
	Disabled   int              `json:"disabled"`
	Enterprise int              `json:"enterprise"`
	ByCategory map[string]int   `json:"byCategory"`
	BySeverity map[Severity]int `json:"bySeverity"`
}

// Categories returns the category names in sorted order.
func (s Summary) Categories() []string {
	out := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Summary summarizes the rule set.
func (e *Engine) Summary() Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Summary{
		Total:      len(e.rules),
		ByCategory: make(map[string]int),
		BySeverity: make(map[Severity]int),
	}
	for _, r := range e.rules {
		if r.Enabled {
			s.Enabled++
		} else {
			s.Disabled++
		}
		if r.Enterprise {
			s.Enterprise++
		}
		s.ByCategory[r.Category]++
		s.BySeverity[r.Severity]++
	}
	return s
}
