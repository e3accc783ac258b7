package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/case-importer/internal/observability"
)

var deleteImportCmd = &cobra.Command{
	Use:   "delete-import <log-id>",
	Short: "Delete an import log and the FAILED cases of its run",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteImport,
}

var (
	deleteUser string
	deleteRole string
)

func init() {
	deleteImportCmd.Flags().StringVarP(&deleteUser, "user", "u", "", "UUID of the caller (required)")
	deleteImportCmd.Flags().StringVar(&deleteRole, "role", "user", "Caller role")
	_ = deleteImportCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(deleteImportCmd)
}

func runDeleteImport(cmd *cobra.Command, args []string) error {
	logID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid log id %q: %w", args[0], err)
	}
	caller, err := parseCaller(deleteUser, deleteRole)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	a.quiet(cmd.ErrOrStderr())

	deleted, err := a.recorder.Delete(cmd.Context(), caller, logID)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintDeleted(logID.String(), deleted)
	return nil
}
