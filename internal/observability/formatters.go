// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted CLI output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintImportReport outputs the counts, row errors and warnings of a run.
func (p *Printer) PrintImportReport(report *types.ImportReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total rows:  %d\n", report.TotalRows))
	sb.WriteString(fmt.Sprintf("Succeeded:   %d\n", report.SuccessCount))
	sb.WriteString(fmt.Sprintf("Failed:      %d\n", report.FailCount))
	sb.WriteString(fmt.Sprintf("Skipped:     %d\n", report.TotalRows-report.SuccessCount-report.FailCount))
	if report.ImportLogID != nil {
		sb.WriteString(fmt.Sprintf("Import log:  %s\n", *report.ImportLogID))
	} else {
		sb.WriteString("Import log:  (not written)\n")
	}

	if len(report.Errors) > 0 {
		sb.WriteString("\nRow errors:\n")
		count := min(len(report.Errors), maxItemsToShow)
		for i := 0; i < count; i++ {
			e := report.Errors[i]
			key := "(none)"
			if e.CaseKey != nil {
				key = *e.CaseKey
			}
			sb.WriteString(fmt.Sprintf("  #%d %s: %s\n", e.Index, key, e.Error))
		}
		if len(report.Errors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Errors)-maxItemsToShow))
		}
	}

	if len(report.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range report.Warnings {
			sb.WriteString(fmt.Sprintf("  ! %s\n", w))
		}
	}

	p.printBox("IMPORT REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintImportLogs outputs one line per import log.
func (p *Printer) PrintImportLogs(logs []db.ImportLog) {
	if len(logs) == 0 {
		p.printBox("IMPORT LOGS", "No imports found")
		return
	}

	var sb strings.Builder
	for _, l := range logs {
		sb.WriteString(fmt.Sprintf("%s  %s\n", l.CreatedAt.UTC().Format(time.RFC3339), l.ID))
		sb.WriteString(fmt.Sprintf("    total %d, ok %d, failed %d\n", l.TotalRows, l.SuccessCount, l.FailCount))
	}
	p.printBox(fmt.Sprintf("IMPORT LOGS (%d)", len(logs)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDeleted outputs the result of a cascade delete.
func (p *Printer) PrintDeleted(logID string, deletedCases int) {
	p.printBox("IMPORT DELETED", fmt.Sprintf("Import log:     %s\nFAILED cases:   %d removed", logID, deletedCases))
}
