package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/config"
	"github.com/jonathan/career-agent/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Produce a career plan for one resume",
	Long: `Runs the three planning stages for a resume: Market-Analyst -> Listing-Finder -> Gap-Coach, then writes the assembled report.

Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.`,
	RunE: runPlanCmd,
}

var runFlags planFlags

func init() {
	runFlags.register(runCommand)
	runCommand.Flags().StringVar(&runFlags.resume, "resume", "", "Path to the resume text file")
	runCommand.Flags().StringVarP(&runFlags.output, "out", "o", "", "Report path; a .json extension writes JSON instead of Markdown")

	rootCmd.AddCommand(runCommand)
}

func runPlanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := runFlags.resolve(cmd)
	if err != nil {
		return err
	}
	if cfg.Resume == "" {
		return fmt.Errorf("--resume must be provided (or set \"resume\" in the config file)")
	}

	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return planOne(ctx, cfg, log, cmd.OutOrStdout())
}

func planOne(ctx context.Context, cfg config.Config, log *zap.Logger, out io.Writer) error {
	rt, err := newRuntime(ctx, cfg, log, out)
	if err != nil {
		return err
	}
	defer rt.Close()

	rep, err := rt.plan(ctx, cfg.Resume, cfg.Output)
	if err != nil {
		return err
	}
	return summarize(out, rep, cfg.Output)
}

// summarize prints the one-line outcome of a run and turns an abort into an error.
func summarize(out io.Writer, rep *types.Report, output string) error {
	meta := rep.Metadata
	_, _ = fmt.Fprintf(out, "Run %s: %s (%d steps) -> %s\n", meta.RunID, meta.Status, meta.TotalSteps, output)
	for _, s := range meta.Stages {
		if s.Degraded {
			_, _ = fmt.Fprintf(out, "  degraded: %s\n", s.Stage)
		}
	}
	if meta.Status == types.RunAborted {
		return fmt.Errorf("run aborted: %s", meta.AbortReason)
	}
	return nil
}
