package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/case-importer/internal/observability"
)

var listImportsCmd = &cobra.Command{
	Use:   "list-imports",
	Short: "List recent import logs",
	RunE:  runListImports,
}

var (
	listUser  string
	listRole  string
	listLimit int
)

func init() {
	listImportsCmd.Flags().StringVarP(&listUser, "user", "u", "", "UUID of the caller (required)")
	listImportsCmd.Flags().StringVar(&listRole, "role", "user", "Caller role (admin lists every log)")
	listImportsCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of logs")
	_ = listImportsCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(listImportsCmd)
}

func runListImports(cmd *cobra.Command, _ []string) error {
	caller, err := parseCaller(listUser, listRole)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	a.quiet(cmd.ErrOrStderr())

	logs, err := a.recorder.List(cmd.Context(), caller, listLimit)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintImportLogs(logs)
	return nil
}
