// Package spreadsheet reads case rows from .xlsx workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/case-importer/internal/types"
)

// ReadFile reads the first sheet of the workbook at path.
func ReadFile(path string) ([]types.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read reads the first sheet of a workbook. The first non-blank row holds the
// column names; each later non-blank row becomes one RawRow keyed by those names.
// Blank cells are nil. Columns without a header are ignored.
func Read(r io.Reader) ([]types.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	var header []string
	rows := make([]types.RawRow, 0, len(grid))
	for _, cells := range grid {
		if blank(cells) {
			continue
		}
		if header == nil {
			header = make([]string, len(cells))
			for i, c := range cells {
				header[i] = strings.TrimSpace(c)
			}
			continue
		}

		row := make(types.RawRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			var value any
			if i < len(cells) && strings.TrimSpace(cells[i]) != "" {
				value = cells[i]
			}
			row[name] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
