package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/types"
)

func TestPrintImportReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	key := "C2"
	logID := "7d3f0a52-8c1e-4d55-9a0b-2f6f4c1e9b11"
	p.PrintImportReport(&types.ImportReport{
		TotalRows:    5,
		SuccessCount: 2,
		FailCount:    2,
		Errors: []types.RowError{
			{Index: 3, Error: "Missing case_id"},
			{Index: 1, CaseKey: &key, Error: "Invalid email"},
		},
		ImportLogID: &logID,
		Warnings:    []string{"duplicate note not written for C10"},
	})
	output := buf.String()

	assert.Contains(t, output, "IMPORT REPORT")
	assert.Contains(t, output, "Total rows:  5")
	assert.Contains(t, output, "Skipped:     1")
	assert.Contains(t, output, "#3 (none): Missing case_id")
	assert.Contains(t, output, "#1 C2: Invalid email")
	assert.Contains(t, output, logID)
	assert.Contains(t, output, "! duplicate note not written for C10")
}

func TestPrintImportReport_TruncatesErrors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &types.ImportReport{TotalRows: 15, FailCount: 15}
	for i := 0; i < 15; i++ {
		report.Errors = append(report.Errors, types.RowError{Index: i, Error: "Invalid email"})
	}
	p.PrintImportReport(report)

	output := buf.String()
	assert.Equal(t, maxItemsToShow, strings.Count(output, "Invalid email"))
	assert.Contains(t, output, "... and 5 more")
	assert.Contains(t, output, "(not written)")
}

func TestPrintImportReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintImportReport(nil)
	assert.Empty(t, buf.String())
}

func TestPrintImportLogs(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	id := uuid.New()
	p.PrintImportLogs([]db.ImportLog{{
		ID:           id,
		TotalRows:    10,
		SuccessCount: 8,
		FailCount:    1,
		CreatedAt:    time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC),
	}})
	output := buf.String()

	assert.Contains(t, output, "IMPORT LOGS (1)")
	assert.Contains(t, output, "2026-05-02T08:30:00Z")
	assert.Contains(t, output, id.String())
	assert.Contains(t, output, "total 10, ok 8, failed 1")

	buf.Reset()
	p.PrintImportLogs(nil)
	assert.Contains(t, buf.String(), "No imports found")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

func TestPrintDeleted(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDeleted("abc", 3)
	assert.Contains(t, buf.String(), "3 removed")
}
