package models

import (
	"sort"

	"github.com/google/uuid"
)

// BatchReport is the read-only outcome of one orchestrator run.
type BatchReport struct {
	ID          uuid.UUID        `json:"id"`
	Mode        Mode             `json:"mode"`
	Model       string           `json:"model,omitempty"`
	Subject     string           `json:"subject"`
	Results     []AnalysisResult `json:"results"`
	Ranked      []AnalysisResult `json:"ranked"`
	Best        *AnalysisResult  `json:"best,omitempty"`
	Aborted     bool             `json:"aborted"`
	AbortReason string           `json:"abort_reason,omitempty"`
}

func NewBatchReport(mode Mode, model, subject string, results []AnalysisResult) *BatchReport {
	report := &BatchReport{
		ID:      uuid.New(),
		Mode:    mode,
		Model:   model,
		Subject: subject,
		Results: results,
		Ranked:  RankResults(results),
	}

	if len(report.Ranked) > 0 && report.Ranked[0].Scored() {
		best := report.Ranked[0]
		report.Best = &best
	}

	return report
}

// RankResults returns a copy of results stable-sorted by percentage, highest
// first. Failed results follow all scored ones in input order.
func RankResults(results []AnalysisResult) []AnalysisResult {
	ranked := make([]AnalysisResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Scored() != b.Scored() {
			return a.Scored()
		}
		if !a.Scored() {
			return false
		}
		return a.Percentage > b.Percentage
	})

	return ranked
}

// Shortlist returns the top n scored results. n <= 0 means all of them.
func (r *BatchReport) Shortlist(n int) []AnalysisResult {
	var out []AnalysisResult
	for _, res := range r.Ranked {
		if !res.Scored() {
			break
		}
		if n > 0 && len(out) == n {
			break
		}
		out = append(out, res)
	}
	return out
}

func (r *BatchReport) Failures() []AnalysisResult {
	var out []AnalysisResult
	for _, res := range r.Results {
		if !res.Scored() {
			out = append(out, res)
		}
	}
	return out
}
