// Package planner turns a markdown plan into a phased task document.
//
// A plan uses "## " headings for phases and "### " headings or top-level
// list items under a phase for tasks. Lines of the form "Key: value" inside
// a task set its fields:
//
//	Priority: high
//	Depends on: 1.1, Set up repository
//	Agent: testing_agent
//	Estimate: 4h
//	Files: cmd/main.go, go.mod
//	Tech: go, sqlite
//	Status: completed
//
// Fields that are absent are inferred from the task text and its phase.
package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/chibuenyim/Agentic-Toolkit/internal/filelock"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// ErrNoTasks is returned when a plan yields no tasks.
var ErrNoTasks = errors.New("plan contains no tasks")

// DefaultPhase names the phase for tasks that appear before any phase heading.
const DefaultPhase = "General"

var (
	fieldRegex    = regexp.MustCompile(`^(?i)(priority|depends on|dependencies|agent|estimate|files|tech|status)\s*:\s*(.*)$`)
	checkboxRegex = regexp.MustCompile(`^\[([ xX])\]\s+`)
	phaseRegex    = regexp.MustCompile(`^(?i)phase\s+[\w.]+\s*[:.-]\s*`)
	estimateRegex = regexp.MustCompile(`^(?i)(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|d|day|days)?$`)
)

// Plan is the result of parsing a markdown plan.
type Plan struct {
	Title    string
	Document *models.Document
	// Warnings lists dependency references that matched no task. They are
	// kept verbatim so the store reports them as missing.
	Warnings []string
}

// Tasks returns the plan's tasks in document order.
func (p *Plan) Tasks() []models.Task {
	return p.Document.Flatten()
}

// Save writes the phased document to path, replacing any existing file.
func (p *Plan) Save(path string) error {
	data, err := json.MarshalIndent(p.Document, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan document: %w", err)
	}
	return filelock.LockAndWrite(path, data)
}

// Planner parses markdown plans.
type Planner struct {
	markdown goldmark.Markdown
	now      func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock overrides the time stamped into document metadata.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New returns a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{
		markdown: goldmark.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses the plan at path.
func (p *Planner) ParseFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()
	plan, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	return plan, nil
}

// Parse reads a markdown plan from r.
func (p *Planner) Parse(r io.Reader) (*Plan, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	b := &builder{source: source}
	doc := p.markdown.Parser().Parse(text.NewReader(source))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		b.visit(n)
	}
	b.finishTask()

	plan := &Plan{Title: b.title}
	var phases []models.Phase
	count := 0
	for _, ph := range b.phases {
		if len(ph.tasks) == 0 {
			continue
		}
		phase := models.Phase{ID: ph.id, Name: ph.name, Description: ph.description}
		for _, d := range ph.tasks {
			phase.Tasks = append(phase.Tasks, d.task)
		}
		count += len(phase.Tasks)
		phases = append(phases, phase)
	}
	if count == 0 {
		return nil, ErrNoTasks
	}

	plan.Warnings = resolveDependencies(phases, b.pendingDeps())
	plan.Document = &models.Document{
		Metadata: &models.Metadata{LastUpdated: p.now().UTC(), TotalTasks: count},
		Phases:   phases,
	}
	for _, ph := range phases {
		for _, t := range ph.Tasks {
			if t.Status == models.StatusCompleted {
				plan.Document.Metadata.CompletedTasks++
			}
		}
	}
	return plan, nil
}

type phaseDraft struct {
	id          string
	name        string
	description string
	tasks       []*taskDraft
}

type taskDraft struct {
	task        models.Task
	description []string
	deps        []string
	explicit    map[string]bool
}

// builder accumulates phases and tasks while walking top-level blocks.
type builder struct {
	source  []byte
	title   string
	phases  []*phaseDraft
	current *taskDraft
}

func (b *builder) visit(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		line := b.text(node)
		switch node.Level {
		case 1:
			if b.title == "" {
				b.title = line
			}
		case 2:
			b.finishTask()
			b.phases = append(b.phases, &phaseDraft{
				id:   fmt.Sprintf("phase-%d", len(b.phases)+1),
				name: phaseName(line),
			})
		default:
			b.startTask(line)
		}
	case *ast.Paragraph:
		for _, line := range b.lines(node) {
			b.addLine(line)
		}
	case *ast.List:
		b.visitList(node)
	}
}

// visitList treats items under a task as fields or description, and items
// directly under a phase as tasks of their own.
func (b *builder) visitList(list *ast.List) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var nested []ast.Node
		var lines []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*ast.List); ok {
				nested = append(nested, c)
				continue
			}
			lines = append(lines, b.lines(c)...)
		}
		if len(lines) == 0 {
			continue
		}

		// List item tasks close with their item, so an open task here
		// came from a heading.
		if b.current != nil {
			for _, line := range lines {
				b.addLine(line)
			}
			for _, n := range nested {
				b.visitList(n.(*ast.List))
			}
			continue
		}

		b.startTask(lines[0])
		for _, line := range lines[1:] {
			b.addLine(line)
		}
		for _, n := range nested {
			b.visitList(n.(*ast.List))
		}
		b.finishTask()
	}
}

func (b *builder) phase() *phaseDraft {
	if len(b.phases) == 0 {
		b.phases = append(b.phases, &phaseDraft{id: "phase-1", name: DefaultPhase})
	}
	return b.phases[len(b.phases)-1]
}

func (b *builder) startTask(line string) {
	b.finishTask()
	ph := b.phase()

	title, status := checkbox(line)
	d := &taskDraft{
		task: models.Task{
			ID:       fmt.Sprintf("%d.%d", len(b.phases), len(ph.tasks)+1),
			Title:    title,
			Status:   status,
			Priority: models.PriorityMedium,
		},
		explicit: make(map[string]bool),
	}
	ph.tasks = append(ph.tasks, d)
	b.current = d
}

func (b *builder) addLine(line string) {
	if b.current == nil {
		if len(b.phases) > 0 {
			ph := b.phases[len(b.phases)-1]
			ph.description = strings.TrimSpace(ph.description + " " + line)
		}
		return
	}
	if m := fieldRegex.FindStringSubmatch(line); m != nil {
		b.current.setField(strings.ToLower(m[1]), strings.TrimSpace(m[2]))
		return
	}
	b.current.description = append(b.current.description, line)
}

func (b *builder) finishTask() {
	d := b.current
	if d == nil {
		return
	}
	b.current = nil

	t := &d.task
	t.Description = strings.Join(d.description, " ")
	ph := b.phase()
	if !d.explicit["agent"] {
		t.AgentType = inferAgent(ph.name, t.Title+" "+t.Description)
	}
	t.Category = strings.TrimSuffix(t.AgentType, "_agent")
	if !d.explicit["priority"] {
		t.Priority = inferPriority(t.Title + " " + t.Description)
	}
	if !d.explicit["estimate"] {
		t.EstimatedHours = inferEstimate(t.AgentType, t.Description)
	}
	t.Dependencies = []string{}
}

// pendingDeps returns the raw dependency references of every task by id.
func (b *builder) pendingDeps() map[string][]string {
	deps := make(map[string][]string)
	for _, ph := range b.phases {
		for _, d := range ph.tasks {
			if len(d.deps) > 0 {
				deps[d.task.ID] = d.deps
			}
		}
	}
	return deps
}

func (d *taskDraft) setField(key, value string) {
	t := &d.task
	switch key {
	case "priority":
		if p, err := models.ParsePriority(strings.ToLower(value)); err == nil {
			t.Priority = p
			d.explicit[key] = true
		}
	case "depends on", "dependencies":
		for _, ref := range splitList(value) {
			if !strings.EqualFold(ref, "none") {
				d.deps = append(d.deps, ref)
			}
		}
	case "agent":
		t.AgentType = normalizeAgent(value)
		d.explicit[key] = true
	case "estimate":
		if h, ok := parseEstimate(value); ok {
			t.EstimatedHours = h
			d.explicit[key] = true
		}
	case "files":
		files := splitList(value)
		if len(files) > 0 {
			ensureContext(t).OutputFiles = files
		}
	case "tech":
		tech := splitList(value)
		if len(tech) > 0 {
			ensureContext(t).TechStack = tech
		}
	case "status":
		if s, err := models.ParseStatus(strings.ToLower(value)); err == nil {
			t.Status = s
		}
	}
}

func ensureContext(t *models.Task) *models.ExecutionContext {
	if t.Context == nil {
		t.Context = &models.ExecutionContext{}
	}
	return t.Context
}

// resolveDependencies rewrites references given by title to task ids and
// returns a warning per reference that matches nothing.
func resolveDependencies(phases []models.Phase, deps map[string][]string) []string {
	byRef := make(map[string]string)
	for _, ph := range phases {
		for _, t := range ph.Tasks {
			byRef[t.ID] = t.ID
			key := strings.ToLower(t.Title)
			if _, taken := byRef[key]; !taken {
				byRef[key] = t.ID
			}
		}
	}

	var warnings []string
	for pi := range phases {
		for ti := range phases[pi].Tasks {
			t := &phases[pi].Tasks[ti]
			for _, ref := range deps[t.ID] {
				id, ok := byRef[ref]
				if !ok {
					id, ok = byRef[strings.ToLower(ref)]
				}
				if !ok {
					warnings = append(warnings, fmt.Sprintf("task %s: unknown dependency %q", t.ID, ref))
					id = ref
				}
				if !t.DependsOn(id) {
					t.Dependencies = append(t.Dependencies, id)
				}
			}
		}
	}
	return warnings
}

func (b *builder) text(n ast.Node) string {
	return strings.Join(b.lines(n), " ")
}

// lines returns the raw source lines of a block with inline markup removed.
func (b *builder) lines(n ast.Node) []string {
	segs := n.Lines()
	out := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		line := plain(string(seg.Value(b.source)))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var markupReplacer = strings.NewReplacer("**", "", "__", "", "`", "")

func plain(s string) string {
	return strings.TrimSpace(markupReplacer.Replace(s))
}

func phaseName(heading string) string {
	name := strings.TrimSpace(phaseRegex.ReplaceAllString(heading, ""))
	if name == "" {
		return heading
	}
	return name
}

func checkbox(line string) (string, models.Status) {
	m := checkboxRegex.FindStringSubmatch(line)
	if m == nil {
		return line, models.StatusPending
	}
	title := strings.TrimSpace(line[len(m[0]):])
	if m[1] == " " {
		return title, models.StatusPending
	}
	return title, models.StatusCompleted
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseEstimate(s string) (float64, bool) {
	m := estimateRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "d") {
		v *= 8
	}
	return v, true
}

func normalizeAgent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	if s != "" && !strings.HasSuffix(s, "_agent") {
		s += "_agent"
	}
	return s
}
