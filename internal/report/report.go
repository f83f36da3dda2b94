// Package report turns judge report cards into score tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"kaieval/internal/judge"
	"kaieval/internal/logging"
)

// Header is the first row of every report.
var Header = []string{
	"File",
	"Effectiveness",
	"Specificity",
	"Reasoning",
	"Competency",
	"Valid Code",
	"Unnecessary Changes",
	"Average Score",
}

const sheet = "Sheet1"

// LoadCards reads the YAML list written by the evaluate command.
func LoadCards(path string) ([]judge.ReportCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cards []judge.ReportCard
	if err := yaml.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cards, nil
}

// Write picks the format from the extension of path: .xlsx for a workbook,
// .csv for comma-separated text.
func Write(path string, cards []judge.ReportCard) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return WriteXLSX(path, cards)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteCSV(f, cards); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unsupported report format %q (want .csv or .xlsx)", ext)
	}
}

// WriteCSV writes the header and one row per card.
func WriteCSV(w io.Writer, cards []judge.ReportCard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, c := range cards {
		if err := cw.Write([]string{
			c.Filename,
			strconv.Itoa(c.Effectiveness),
			strconv.Itoa(c.Specificity),
			strconv.Itoa(c.Reasoning),
			strconv.Itoa(c.Competency),
			strconv.FormatBool(c.ValidCode),
			strconv.FormatBool(c.UnnecessaryChanges),
			formatScore(c.ScoreSummary()),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	logging.Report("wrote %d csv rows", len(cards))
	return cw.Error()
}

// WriteXLSX writes the same table to a workbook, keeping numbers and
// booleans typed.
func WriteXLSX(path string, cards []judge.ReportCard) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, c := range cards {
		row := []any{
			c.Filename,
			c.Effectiveness,
			c.Specificity,
			c.Reasoning,
			c.Competency,
			c.ValidCode,
			c.UnnecessaryChanges,
			c.ScoreSummary(),
		}
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	logging.Report("wrote %d xlsx rows to %s", len(cards), path)
	return nil
}

// formatScore always shows a fractional part: 8 becomes "8.0".
func formatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
