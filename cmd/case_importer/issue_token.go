package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/case-importer/internal/config"
	"github.com/jonathan/case-importer/internal/server"
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Sign a bearer token for the case API",
	Long: `Sign a bearer token with JWT_SECRET for local use against the case API.
Tokens carry the caller UUID and role and expire after JWT_EXPIRATION_HOURS.`,
	RunE: runIssueToken,
}

var (
	tokenUser string
	tokenRole string
)

func init() {
	issueTokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "UUID of the caller (required)")
	issueTokenCmd.Flags().StringVar(&tokenRole, "role", "user", "Caller role (user or admin)")
	_ = issueTokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	caller, err := parseCaller(tokenUser, tokenRole)
	if err != nil {
		return err
	}
	if caller == nil {
		return fmt.Errorf("--user is required")
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}
	token, err := server.NewJWTService(jwtConfig).GenerateToken(caller.ID, caller.Role)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
