package executor

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/chibuenyim/Agentic-Toolkit/internal/resolver"
	"github.com/chibuenyim/Agentic-Toolkit/internal/rules"
	"github.com/chibuenyim/Agentic-Toolkit/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"no runnable", &NoRunnableError{}, KindDependency},
		{"wrapped no runnable", fmt.Errorf("iteration 3: %w", &NoRunnableError{}), KindDependency},
		{"policy", &PolicyBlockedError{TaskID: "1"}, KindTask},
		{"backend", &BackendFailureError{TaskID: "1", Err: errors.New("exit 2")}, KindTask},
		{"approval", ErrApprovalDenied, KindTask},
		{"load", &store.LoadError{Path: "tasks.json", Err: errors.New("bad json")}, KindStore},
		{"persist", &store.PersistError{Path: "tasks.json", Err: errors.New("disk full")}, KindStore},
		{"not found", fmt.Errorf("update: %w", store.ErrTaskNotFound), KindStore},
		{"transition", store.ErrInvalidTransition, KindStore},
		{"stopped", ErrStopped, KindSystem},
		{"other", errors.New("boom"), KindSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{"nil", nil, ""},
		{"dependency", &NoRunnableError{}, "task could not run yet: "},
		{"task", &BackendFailureError{TaskID: "1", Err: errors.New("exit 2")}, "task ran and failed: "},
		{"store", store.ErrTaskNotFound, "could not load or persist task state: "},
		{"system", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.err)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Describe() = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestNoRunnableErrorMessage(t *testing.T) {
	if got := (&NoRunnableError{}).Error(); got != "no pending tasks" {
		t.Errorf("empty blockers: got %q", got)
	}

	err := &NoRunnableError{Blockers: []resolver.Blocker{
		{TaskID: "2", Kind: resolver.BlockerMissing, On: []string{"9"}},
		{TaskID: "3", Kind: resolver.BlockerCycle, On: []string{"3", "4"}},
	}}
	want := "no runnable task: 2 (missing: 9); 3 (cycle: 3, 4)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPolicyBlockedErrorMessage(t *testing.T) {
	err := &PolicyBlockedError{
		TaskID:    "1.2",
		Violation: rules.Violation{RuleID: "no-secrets", File: "config.go", Description: "hardcoded secret"},
	}
	want := "task 1.2 blocked by rule no-secrets in config.go: hardcoded secret"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestBackendFailureErrorUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("run: %w", &BackendFailureError{TaskID: "1", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the backend cause")
	}
}

func TestTruncate_KeepsRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "  done \n", 10, "done"},
		{"ascii", "abcdef", 3, "abc..."},
		{"mid rune", "aé", 2, "a..."},
		{"on boundary", "éé", 2, "é..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) split a rune: %q", tt.in, tt.n, got)
			}
		})
	}
}
