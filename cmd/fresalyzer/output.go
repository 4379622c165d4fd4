package main

import (
	"bytes"
	"fmt"
	"os"

	"vardhanvasista/fresalyzer/internal/models"
	"vardhanvasista/fresalyzer/internal/services"
)

func (a *app) printReport(report *models.BatchReport) {
	fmt.Fprintf(a.out, "Results for %s\n", report.Subject)

	// Models are shown in the order they were asked.
	rows := report.Results
	if report.Mode != models.ModeManyModelsVsOne {
		rows = append(report.Shortlist(a.top), report.Failures()...)
	}

	for i, r := range rows {
		name := r.Name
		if report.Mode == models.ModeManyVsSingle && r.CandidateName != "" && r.CandidateName != services.UnknownCandidate {
			name = fmt.Sprintf("%s (%s)", r.CandidateName, r.Name)
		}
		fmt.Fprintf(a.out, "%2d. %-45s %s\n", i+1, name, formatScore(r))
	}

	if report.Mode == models.ModeSingleVsMany && report.Best != nil {
		fmt.Fprintf(a.out, "\nBest match: %s (%s)\n", report.Best.Name, formatScore(*report.Best))
	}
	if report.Aborted {
		fmt.Fprintf(a.out, "\nStopped early: %s\n", report.AbortReason)
	}
}

func formatScore(r models.AnalysisResult) string {
	if !r.Scored() {
		return r.ErrorLabel
	}
	if r.Ambiguous() {
		return "0% (no percentage found)"
	}
	return fmt.Sprintf("%g%%", r.Percentage)
}

func (a *app) exportShortlist(report *models.BatchReport) error {
	if a.export == "" {
		return nil
	}

	format, err := services.ParseExportFormat(a.export)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := services.WriteShortlist(&buf, format, services.ShortlistRows(report, a.top)); err != nil {
		return err
	}
	if err := os.WriteFile(a.export, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write export %s: %w", a.export, err)
	}

	fmt.Fprintf(a.out, "Shortlist exported to %s\n", a.export)
	return nil
}
