// Package importer parses uploaded spreadsheets of job URLs into the inputs
// of an import queue.
package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column indices for the import spreadsheet (0-based).
const (
	colURL   = 0 // Column A
	colTitle = 1 // Column B

	headerRowIndex = 1 // Excel rows are 1-based, header is row 1
)

// SheetName is the sheet parsed from uploaded workbooks.
const SheetName = "Jobs"

// JobRow represents a parsed row from the spreadsheet.
type JobRow struct {
	Row   int // Excel row number (for error reporting)
	URL   string
	Title string
}

// ImportError represents a validation error for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ValidateRow validates a single row and returns an error message or empty string.
func ValidateRow(row JobRow) string {
	if strings.TrimSpace(row.URL) == "" {
		return "url is required"
	}
	if !strings.HasPrefix(row.URL, "http://") && !strings.HasPrefix(row.URL, "https://") {
		return "url must start with http:// or https://"
	}
	return ""
}

// ParseWorkbook reads the Jobs sheet and returns valid rows plus per-row
// validation errors. Blank rows are skipped; a workbook without the Jobs
// sheet falls back to the first sheet.
func ParseWorkbook(r io.Reader) ([]JobRow, []ImportError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := SheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var (
		parsed     []JobRow
		importErrs []ImportError
	)
	for i, cells := range rows {
		rowNum := i + 1
		if rowNum == headerRowIndex {
			continue
		}

		row := JobRow{Row: rowNum, URL: cell(cells, colURL), Title: cell(cells, colTitle)}
		if row.URL == "" && row.Title == "" {
			continue
		}

		if msg := ValidateRow(row); msg != "" {
			importErrs = append(importErrs, ImportError{Row: rowNum, Error: msg})
			continue
		}
		parsed = append(parsed, row)
	}

	return parsed, importErrs, nil
}

func cell(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
