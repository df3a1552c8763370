package rules

// DefaultRules returns the built-in rule set. The patterns are
// illustrative; real deployments import their own.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "security-no-hardcoded-secrets",
			Name:        "No Hardcoded Secrets",
			Category:    CategorySecurity,
			Severity:    SeverityCritical,
			Description: "Detects hardcoded passwords, API keys, and sensitive data",
			Pattern:     `(?i)(password|secret|key|token)\s*[:=]\s*['"][^'"]*['"]`,
			Action:      ActionBlock,
			Enterprise:  true,
		},
		{
			ID:          "compliance-gdpr-data-handling",
			Name:        "GDPR Data Handling",
			Category:    CategoryCompliance,
			Severity:    SeverityHigh,
			Description: "Ensures proper data handling for GDPR compliance",
			Pattern:     `(?i)(personal.*data|user.*information|\bpii\b)`,
			Action:      ActionWarn,
			Enterprise:  true,
		},
		{
			ID:          "performance-no-nested-loops",
			Name:        "Performance - Nested Loops",
			Category:    CategoryPerformance,
			Severity:    SeverityMedium,
			Description: "Flags deeply nested loops that may impact performance",
			Pattern:     `(?i)for\s*\([^}]*for\s*\([^}]*for\s*\(`,
			Action:      ActionWarn,
		},
		{
			ID:          "maintainability-large-functions",
			Name:        "Large Function Detection",
			Category:    CategoryMaintainability,
			Severity:    SeverityLow,
			Description: "Identifies functions that may be too large",
			Pattern:     `(?i)function\s+\w+\s*\([^)]*\)\s*\{[^}]{1000,}`,
			Action:      ActionInfo,
		},
		{
			ID:          "security-sql-injection",
			Name:        "SQL Injection Prevention",
			Category:    CategorySecurity,
			Severity:    SeverityCritical,
			Description: "Detects potential SQL injection vulnerabilities",
			Pattern:     "(?i)(SELECT|INSERT|UPDATE|DELETE)[^\\n]*\\$\\{[^}]*\\}",
			Action:      ActionBlock,
			Enterprise:  true,
		},
		{
			ID:          "enterprise-logging",
			Name:        "Enterprise Logging Standards",
			Category:    CategoryCompliance,
			Severity:    SeverityMedium,
			Description: "Ensures proper logging for enterprise audit trails",
			Pattern:     `console\.(log|error|warn)`,
			Action:      ActionWarn,
			Enterprise:  true,
		},
	}
}
