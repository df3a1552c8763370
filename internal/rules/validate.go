package rules

import (
	"fmt"
	"os"
	"strings"

	"github.com/chibuenyim/Agentic-Toolkit/internal/fileutil"
)

// ValidateCode runs every enabled rule over code. file only labels the
// violations. Results are also kept for ComplianceReport.
func (e *Engine) ValidateCode(code, file string) []Violation {
	if file == "" {
		file = "unknown"
	}
	now := e.now().UTC()

	e.mu.RLock()
	var out []Violation
	for _, id := range e.order {
		r := e.rules[id]
		if !r.Enabled {
			continue
		}
		matches := r.re.FindAllStringIndex(code, -1)
		if len(matches) == 0 {
			continue
		}
		out = append(out, Violation{
			RuleID:      r.ID,
			RuleName:    r.Name,
			Category:    r.Category,
			Severity:    r.Severity,
			Description: r.Description,
			File:        file,
			Line:        strings.Count(code[:matches[0][0]], "\n") + 1,
			Matches:     len(matches),
			Action:      r.Action,
			Enterprise:  r.Enterprise,
			Timestamp:   now,
		})
	}
	e.mu.RUnlock()

	e.record(out)
	return out
}

// ValidateFile reads path and validates it. A read failure is reported as
// a single error-action violation, which never blocks.
func (e *Engine) ValidateFile(path string) []Violation {
	data, err := os.ReadFile(path)
	if err != nil {
		v := e.systemViolation("file-read-error", "File Read Error", path, fmt.Sprintf("Could not read file: %v", err))
		e.record([]Violation{v})
		return []Violation{v}
	}
	return e.ValidateCode(string(data), path)
}

// ValidateProject validates every source file under root, skipping hidden
// directories and dependency folders.
func (e *Engine) ValidateProject(root string) []Violation {
	res, err := fileutil.Scan(root, fileutil.ScanOptions{
		Extensions:  fileutil.SourceExtensions,
		ExcludeDirs: fileutil.DefaultExcludeDirs,
	})
	if err != nil {
		v := e.systemViolation("project-scan-error", "Project Scan Error", root, fmt.Sprintf("Could not scan project: %v", err))
		e.record([]Violation{v})
		return []Violation{v}
	}

	var out []Violation
	for _, scanErr := range res.Errors {
		v := e.systemViolation("project-scan-error", "Project Scan Error", root, scanErr.Error())
		e.record([]Violation{v})
		out = append(out, v)
	}
	for _, f := range res.Files {
		out = append(out, e.ValidateFile(f)...)
	}
	return out
}

func (e *Engine) systemViolation(id, name, file, description string) Violation {
	return Violation{
		RuleID:      id,
		RuleName:    name,
		Category:    CategorySystem,
		Severity:    SeverityError,
		Description: description,
		File:        file,
		Action:      ActionError,
		Timestamp:   e.now().UTC(),
	}
}

func (e *Engine) record(vs []Violation) {
	if len(vs) == 0 {
		return
	}
	e.mu.Lock()
	e.violations = append(e.violations, vs...)
	e.mu.Unlock()
}

// ViolationFilter selects recorded violations. Zero fields match everything.
type ViolationFilter struct {
	Severity   Severity
	Category   string
	Enterprise *bool
}

// Violations returns the recorded violations matching f.
func (e *Engine) Violations(f ViolationFilter) []Violation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Violation
	for _, v := range e.violations {
		if f.Severity != "" && v.Severity != f.Severity {
			continue
		}
		if f.Category != "" && v.Category != f.Category {
			continue
		}
		if f.Enterprise != nil && v.Enterprise != *f.Enterprise {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ClearViolations forgets recorded violations.
func (e *Engine) ClearViolations() {
	e.mu.Lock()
	e.violations = nil
	e.mu.Unlock()
}
