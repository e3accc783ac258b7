package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/case-importer/internal/cases"
	"github.com/jonathan/case-importer/internal/config"
	"github.com/jonathan/case-importer/internal/server"
	"github.com/jonathan/case-importer/internal/server/ratelimit"
	"github.com/jonathan/case-importer/internal/validation"
)

var (
	servePort       int
	serveInitSchema bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing batch imports, import logs and case records.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveInitSchema, "init-schema", false, "Create tables if they do not exist before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveInitSchema {
		if err := a.store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	port := a.cfg.Port
	if servePort > 0 {
		port = servePort
	}

	srv := server.New(port, server.Deps{
		Importer:   a.engine,
		ImportLogs: a.recorder,
		Cases:      cases.NewService(a.store, validation.New(a.cfg.PhoneRegion), a.logger),
		Health:     a.store,
		Tokens:     server.NewJWTService(jwtConfig).AsTokenValidator(),
		RateLimit:  ratelimit.LoadConfig(),
		Logger:     a.logger,
	})
	return srv.Start(ctx)
}
