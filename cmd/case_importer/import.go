package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/case-importer/internal/importer"
	"github.com/jonathan/case-importer/internal/observability"
	"github.com/jonathan/case-importer/internal/spreadsheet"
	"github.com/jonathan/case-importer/internal/types"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Reconcile a batch file into the case store",
	Long:  "Reads rows from a JSON batch (array or {\"rows\": [...]}) or the first sheet of an .xlsx workbook and reconciles them directly against the database.",
	RunE:  runImport,
}

var (
	importFile string
	importUser string
	importRole string
)

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Path to a .json or .xlsx batch file (required)")
	importCmd.Flags().StringVarP(&importUser, "user", "u", "", "UUID of the caller running the import; without it no import log is written")
	importCmd.Flags().StringVar(&importRole, "role", string(types.RoleUser), "Caller role (user or admin)")

	if err := importCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(importCmd)
}

// readRows loads a batch file, choosing the reader by extension.
func readRows(path string) ([]types.RawRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err := spreadsheet.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return rows, importer.CheckRows(rows)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read batch file: %w", err)
		}
		return importer.ParseBatch(data)
	}
}

// parseCaller builds the caller identity from flags. An empty user yields nil.
func parseCaller(user, role string) (*types.Caller, error) {
	if user == "" {
		return nil, nil
	}
	id, err := uuid.Parse(user)
	if err != nil {
		return nil, fmt.Errorf("invalid --user %q: %w", user, err)
	}
	return &types.Caller{ID: id, Role: types.ParseRole(strings.ToLower(role))}, nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	caller, err := parseCaller(importUser, importRole)
	if err != nil {
		return err
	}
	rows, err := readRows(importFile)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	a.quiet(cmd.ErrOrStderr())

	report, err := a.engine.Reconcile(cmd.Context(), rows, caller)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintImportReport(report)
	return nil
}
