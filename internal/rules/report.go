package rules

import (
	"time"
)

// maxReportViolations caps the violations listed in a ComplianceReport.
const maxReportViolations = 50

// Compliance verdicts.
const (
	CompliancePass = "PASS"
	ComplianceFail = "FAIL"
)

// Recommendation messages.
const (
	RecCritical   = "Address critical violations immediately before deployment"
	RecSecurity   = "Security violations detected - conduct security review"
	RecCompliance = "Compliance violations found - ensure regulatory requirements are met"
	RecManual     = "Code passes all automated checks - consider manual review"
)

// ComplianceReport summarizes everything the engine has reported.
type ComplianceReport struct {
	Timestamp       time.Time   `json:"timestamp"`
	Overall         string      `json:"overall"`
	ViolationCount  int         `json:"violationCount"`
	Rules           Summary     `json:"rules"`
	Violations      []Violation `json:"violations"`
	Recommendations []string    `json:"recommendations"`
}

// ComplianceReport builds a report over the recorded violations.
func (e *Engine) ComplianceReport() ComplianceReport {
	vs := e.Violations(ViolationFilter{})
	r := ComplianceReport{
		Timestamp:       e.now().UTC(),
		Overall:         CompliancePass,
		ViolationCount:  len(vs),
		Rules:           e.Summary(),
		Violations:      vs,
		Recommendations: recommend(vs),
	}
	if len(vs) > 0 {
		r.Overall = ComplianceFail
	}
	if len(r.Violations) > maxReportViolations {
		r.Violations = r.Violations[:maxReportViolations]
	}
	return r
}

func recommend(vs []Violation) []string {
	var critical, security, compliance bool
	for _, v := range vs {
		critical = critical || v.Severity == SeverityCritical
		security = security || v.Category == CategorySecurity
		compliance = compliance || v.Category == CategoryCompliance
	}

	var recs []string
	if critical {
		recs = append(recs, RecCritical)
	}
	if security {
		recs = append(recs, RecSecurity)
	}
	if compliance {
		recs = append(recs, RecCompliance)
	}
	if len(recs) == 0 {
		recs = append(recs, RecManual)
	}
	return recs
}
