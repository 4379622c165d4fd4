package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"vardhanvasista/fresalyzer/internal/models"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"

	exportSheet = "Shortlist"
)

var ExportHeader = []string{"Candidate Name", "Match Percentage"}

// ParseExportFormat accepts "csv", "xlsx" or a file name ending in either.
func ParseExportFormat(s string) (ExportFormat, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(v); ext != "" {
		v = strings.TrimPrefix(ext, ".")
	}

	switch ExportFormat(v) {
	case ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use csv or xlsx)", s)
}

func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func (f ExportFormat) Extension() string {
	return "." + string(f)
}

// ExportRow is one line of an exported shortlist.
type ExportRow struct {
	Name       string
	Percentage float64
}

// ShortlistRows turns the top n scored results into export rows. The
// extracted candidate name is preferred over the file name when known.
func ShortlistRows(report *models.BatchReport, n int) []ExportRow {
	shortlist := report.Shortlist(n)
	rows := make([]ExportRow, 0, len(shortlist))
	for _, r := range shortlist {
		name := r.Name
		if r.CandidateName != "" && r.CandidateName != UnknownCandidate {
			name = r.CandidateName
		}
		rows = append(rows, ExportRow{Name: name, Percentage: r.Percentage})
	}
	return rows
}

// WriteShortlist writes rows with the two-column header in the given format.
func WriteShortlist(w io.Writer, format ExportFormat, rows []ExportRow) error {
	switch format {
	case ExportCSV:
		return writeShortlistCSV(w, rows)
	case ExportXLSX:
		return writeShortlistXLSX(w, rows)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func writeShortlistCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Name, strconv.FormatFloat(row.Percentage, 'f', -1, 64)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeShortlistXLSX(w io.Writer, rows []ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &[]interface{}{row.Name, row.Percentage}); err != nil {
			return fmt.Errorf("failed to write xlsx row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
