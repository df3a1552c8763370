package execlog

import (
	"math"
	"time"
)

// Report thresholds.
const (
	minSuccessRate      = 80.0
	longRunningDuration = time.Hour
	recentWindow        = 24 * time.Hour
	recentLimit         = 10
)

// Recommendation messages.
const (
	RecImproveSuccessRate = "Review and fix failing tasks to improve success rate"
	RecBreakDownLongTasks = "Consider breaking down long-running tasks"
	RecInvestigateFailure = "Investigate root causes of task failures"
)

// Stats summarizes outcomes recorded in the log.
type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	// Failed counts fail and error entries.
	Failed int `json:"failed"`
	// AverageDuration is the mean duration of complete entries, in milliseconds.
	AverageDuration float64 `json:"averageDuration"`
	// SuccessRate is successful / (successful + failed) as a percentage.
	SuccessRate float64 `json:"successRate"`
}

// Attempts is the number of finished task attempts.
func (s Stats) Attempts() int {
	return s.Successful + s.Failed
}

// ComputeStats summarizes entries.
func ComputeStats(entries []Entry) Stats {
	st := Stats{Total: len(entries)}
	var totalMs int64
	timed := 0
	for _, e := range entries {
		switch e.Type {
		case TypeComplete:
			st.Successful++
			if e.Metadata.Duration > 0 {
				totalMs += e.Metadata.Duration
				timed++
			}
		case TypeFail, TypeError:
			st.Failed++
		}
	}
	if timed > 0 {
		st.AverageDuration = float64(totalMs) / float64(timed)
	}
	if st.Attempts() > 0 {
		st.SuccessRate = math.Round(float64(st.Successful)/float64(st.Attempts())*1000) / 10
	}
	return st
}

// Stats reads the log and summarizes it.
func (l *Log) Stats() (Stats, error) {
	entries, err := l.Read()
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(entries), nil
}

// Report is the execution report: summary, the latest activity from the
// last day and recommendations.
type Report struct {
	Timestamp       time.Time `json:"timestamp"`
	Summary         Stats     `json:"summary"`
	RecentActivity  []Entry   `json:"recentActivity"`
	Recommendations []string  `json:"recommendations"`
}

// BuildReport builds a Report over entries as of now.
func BuildReport(entries []Entry, now time.Time) Report {
	st := ComputeStats(entries)
	return Report{
		Timestamp:       now.UTC(),
		Summary:         st,
		RecentActivity:  Select(entries, Filter{Since: now.Add(-recentWindow), Limit: recentLimit}),
		Recommendations: recommend(st),
	}
}

// Report reads the log and builds a Report.
func (l *Log) Report() (Report, error) {
	entries, err := l.Read()
	if err != nil {
		return Report{}, err
	}
	return BuildReport(entries, l.now()), nil
}

// recommend only judges rates once at least one attempt has finished.
func recommend(st Stats) []string {
	recs := []string{}
	if st.Attempts() > 0 && st.SuccessRate < minSuccessRate {
		recs = append(recs, RecImproveSuccessRate)
	}
	if time.Duration(st.AverageDuration*float64(time.Millisecond)) > longRunningDuration {
		recs = append(recs, RecBreakDownLongTasks)
	}
	if st.Failed > st.Successful {
		recs = append(recs, RecInvestigateFailure)
	}
	return recs
}
