package rules

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleIDs(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.RuleID
	}
	return out
}

func TestDefaultRulesCompile(t *testing.T) {
	for _, r := range DefaultRules() {
		t.Run(r.ID, func(t *testing.T) {
			require.NoError(t, r.Validate())
		})
	}
	assert.Len(t, NewEngine().Rules(), len(DefaultRules()))
}

func TestValidateCode(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		code     string
		want     []string
		blocking bool
	}{
		{
			name:     "hardcoded secret blocks",
			code:     "const x = 1\nconst password = \"hunter2\"\n",
			want:     []string{"security-no-hardcoded-secrets"},
			blocking: true,
		},
		{
			name: "console logging warns",
			code: "console.log('hi')",
			want: []string{"enterprise-logging"},
		},
		{
			name:     "interpolated sql blocks",
			code:     "db.query(`SELECT * FROM users WHERE id = ${id}`)",
			want:     []string{"security-sql-injection"},
			blocking: true,
		},
		{
			name: "plain template string is fine",
			code: "const greeting = `hello ${name}`",
			want: []string{},
		},
		{
			name: "triple nested loop",
			code: "for (a) { for (b) { for (c) { } } }",
			want: []string{"performance-no-nested-loops"},
		},
		{
			name: "clean code",
			code: "func add(a, b int) int { return a + b }",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := e.ValidateCode(tt.code, "x.js")
			assert.ElementsMatch(t, tt.want, ruleIDs(vs))
			assert.Equal(t, tt.blocking, HasBlocking(vs))
		})
	}
}

func TestValidateCode_LineAndMatchCount(t *testing.T) {
	e := NewEngine()

	vs := e.ValidateCode("a\nb\nconsole.log(1)\nconsole.warn(2)\n", "app.js")

	require.Len(t, vs, 1)
	assert.Equal(t, 3, vs[0].Line)
	assert.Equal(t, 2, vs[0].Matches)
	assert.Equal(t, "app.js", vs[0].File)
}

func TestEnableDisableRemove(t *testing.T) {
	e := NewEngine()
	code := `token = "abc"`

	require.NoError(t, e.Disable("security-no-hardcoded-secrets"))
	assert.Empty(t, e.ValidateCode(code, ""))

	require.NoError(t, e.Enable("security-no-hardcoded-secrets"))
	assert.Len(t, e.ValidateCode(code, ""), 1)

	assert.True(t, e.Remove("security-no-hardcoded-secrets"))
	assert.False(t, e.Remove("security-no-hardcoded-secrets"))
	assert.Empty(t, e.ValidateCode(code, ""))

	assert.ErrorIs(t, e.Enable("nope"), ErrRuleNotFound)
}

func TestAdd_RejectsInvalid(t *testing.T) {
	e := NewEngine(WithoutDefaults())

	assert.ErrorIs(t, e.Add(Rule{Pattern: "x", Action: ActionWarn}), ErrInvalidRule)
	assert.ErrorIs(t, e.Add(Rule{ID: "a", Pattern: "(", Action: ActionWarn}), ErrInvalidRule)
	assert.ErrorIs(t, e.Add(Rule{ID: "a", Pattern: "x", Action: ActionError}), ErrInvalidRule)
	assert.ErrorIs(t, e.Add(Rule{ID: "a", Action: ActionWarn}), ErrInvalidRule)
	assert.Empty(t, e.Rules())
}

func TestValidateFile(t *testing.T) {
	e := NewEngine()
	dir := t.TempDir()

	path := filepath.Join(dir, "secret.py")
	require.NoError(t, os.WriteFile(path, []byte(`api_key = "123"`), 0644))
	vs := e.ValidateFile(path)
	require.Len(t, vs, 1)
	assert.True(t, vs[0].Blocking())

	missing := e.ValidateFile(filepath.Join(dir, "missing.py"))
	require.Len(t, missing, 1)
	assert.Equal(t, ActionError, missing[0].Action)
	assert.Equal(t, "file-read-error", missing[0].RuleID)
	assert.False(t, HasBlocking(missing), "unreadable files never block")
}

func TestValidateProject(t *testing.T) {
	e := NewEngine()
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	write("src/app.js", "console.log('x')")
	write("node_modules/dep/index.js", `password = "p"`)
	write(".cache/x.js", `password = "p"`)
	write("notes.txt", `password = "p"`)

	vs := e.ValidateProject(root)

	require.Len(t, vs, 1)
	assert.Equal(t, "enterprise-logging", vs[0].RuleID)
	assert.Equal(t, filepath.Join(root, "src", "app.js"), vs[0].File)

	bad := e.ValidateProject(filepath.Join(root, "nope"))
	require.Len(t, bad, 1)
	assert.Equal(t, "project-scan-error", bad[0].RuleID)
}

func TestSummary(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Disable("enterprise-logging"))

	s := e.Summary()

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 5, s.Enabled)
	assert.Equal(t, 1, s.Disabled)
	assert.Equal(t, 4, s.Enterprise)
	assert.Equal(t, 2, s.ByCategory[CategorySecurity])
	assert.Equal(t, 2, s.BySeverity[SeverityCritical])
	assert.Equal(t, []string{"compliance", "maintainability", "performance", "security"}, s.Categories())
}

func TestComplianceReport(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return now }))

	clean := e.ComplianceReport()
	assert.Equal(t, CompliancePass, clean.Overall)
	assert.Equal(t, []string{RecManual}, clean.Recommendations)

	e.ValidateCode(`secret = "s"`+"\nconsole.log(1)", "a.js")
	r := e.ComplianceReport()

	assert.Equal(t, ComplianceFail, r.Overall)
	assert.Equal(t, 2, r.ViolationCount)
	assert.True(t, r.Timestamp.Equal(now))
	assert.Equal(t, []string{RecCritical, RecSecurity, RecCompliance}, r.Recommendations)

	yes := true
	assert.Len(t, e.Violations(ViolationFilter{Category: CategorySecurity}), 1)
	assert.Len(t, e.Violations(ViolationFilter{Enterprise: &yes}), 2)

	e.ClearViolations()
	assert.Equal(t, CompliancePass, e.ComplianceReport().Overall)
}

func TestComplianceReport_CapsListedViolations(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 60; i++ {
		e.ValidateCode("console.log(1)", "a.js")
	}

	r := e.ComplianceReport()
	assert.Equal(t, 60, r.ViolationCount)
	assert.Len(t, r.Violations, maxReportViolations)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := NewEngine()
	require.NoError(t, src.Disable("enterprise-logging"))
	require.NoError(t, src.Add(Rule{
		ID: "custom-todo", Name: "No TODO", Category: "maintainability",
		Severity: SeverityLow, Pattern: `TODO`, Action: ActionInfo,
	}))

	var buf bytes.Buffer
	require.NoError(t, src.Export(&buf))
	assert.Contains(t, buf.String(), "custom-todo")

	dst := NewEngine(WithoutDefaults())
	n, err := dst.Import(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	logging, ok := dst.Get("enterprise-logging")
	require.True(t, ok)
	assert.False(t, logging.Enabled)
	assert.Len(t, dst.ValidateCode("// TODO", "x.go"), 1)
}

func TestImport_InvalidRuleImportsNothing(t *testing.T) {
	e := NewEngine(WithoutDefaults())
	doc := `rules:
  - id: ok
    pattern: x
    action: warn
  - id: broken
    pattern: "("
    action: warn
`
	_, err := e.Import(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.Empty(t, e.Rules())
}

func TestLoadAndSaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")

	n, err := NewEngine(WithoutDefaults()).LoadFile(path)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, NewEngine().SaveFile(path))
	e := NewEngine(WithoutDefaults())
	n, err = e.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultRules()), n)
}
