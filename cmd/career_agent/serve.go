package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-agent/internal/db"
	"github.com/jonathan/career-agent/internal/server"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planning API over HTTP",
	Long: `Starts an HTTP server that plans pasted resumes.

Endpoints:
  POST /runs              plan a resume, respond with the report (?format=markdown for Markdown)
  POST /runs/stream       plan a resume, streaming progress as Server-Sent Events
  GET  /runs              list archived runs (requires --db-url)
  GET  /runs/{id}         one archived run with its stage attempts
  GET  /runs/{id}/report  the archived report
  GET  /health, /metrics

Rate limits are read from the environment (RATE_LIMIT_ENABLED, PLAN_LIMIT, PLAN_WINDOW, ...).`,
	RunE: runServeCmd,
}

var (
	_ server.Planner = (*runtime)(nil)
	_ server.Archive = (*db.DB)(nil)
)

var (
	serveFlags planFlags
	serveAddr  string
)

func init() {
	serveFlags.register(serveCommand)
	serveCommand.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")

	rootCmd.AddCommand(serveCommand)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := serveFlags.resolve(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.Close()

	// A nil *db.DB must not become a non-nil interface.
	var archive server.Archive
	if rt.database != nil {
		archive = rt.database
	}

	srv := server.New(server.Config{Addr: serveAddr}, rt, archive, log)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", serveAddr)
	return srv.Start(ctx)
}
