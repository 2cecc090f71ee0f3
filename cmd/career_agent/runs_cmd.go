package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/career-agent/internal/db"
	"github.com/jonathan/career-agent/internal/report"
	"github.com/jonathan/career-agent/internal/types"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "Browse archived runs",
	Long:  "Reads the run archive written by run and batch when a database is configured.",
}

var (
	runsDatabaseURL string
	runsStatus      string
	runsLimit       int
	runsReport      bool
)

func init() {
	runsCommand.PersistentFlags().StringVar(&runsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withArchive(cmd.Context(), func(ctx context.Context, database *db.DB) error {
				return runsList(ctx, cmd.OutOrStdout(), database, db.RunFilters{Status: runsStatus, Limit: runsLimit})
			})
		},
	}
	listCmd.Flags().StringVar(&runsStatus, "status", "", "Only runs with this status, e.g. aborted")
	listCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs listed")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the stage attempts of a run and optionally its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			return withArchive(cmd.Context(), func(ctx context.Context, database *db.DB) error {
				return runsShow(ctx, cmd.OutOrStdout(), database, runID, runsReport)
			})
		},
	}
	showCmd.Flags().BoolVar(&runsReport, "report", false, "Also print the archived report as Markdown")

	runsCommand.AddCommand(listCmd, showCmd)
	rootCmd.AddCommand(runsCommand)
}

func withArchive(ctx context.Context, fn func(context.Context, *db.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	url := runsDatabaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	database, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(ctx, database)
}

// runArchive is the read side of the archive used by the runs commands.
type runArchive interface {
	ListRuns(ctx context.Context, filters db.RunFilters) ([]db.Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	ListAttempts(ctx context.Context, runID uuid.UUID) ([]db.Attempt, error)
	GetReport(ctx context.Context, runID uuid.UUID) (*types.Report, error)
}

var _ runArchive = (*db.DB)(nil)

func runsList(ctx context.Context, out io.Writer, archive runArchive, filters db.RunFilters) error {
	runs, err := archive.ListRuns(ctx, filters)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "no runs archived")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tROLE\tSTATUS\tSTEPS\tSTARTED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.TargetRole, r.Status, r.TotalSteps, r.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runsShow(ctx context.Context, out io.Writer, archive runArchive, runID uuid.UUID, withReport bool) error {
	run, err := archive.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	_, _ = fmt.Fprintf(out, "Run %s\nRole: %s\nStatus: %s\n", run.ID, run.TargetRole, run.Status)
	if run.AbortReason != "" {
		_, _ = fmt.Fprintf(out, "Abort reason: %s\n", run.AbortReason)
	}
	_, _ = fmt.Fprintf(out, "Total steps: %d\n\n", run.TotalSteps)

	attempts, err := archive.ListAttempts(ctx, runID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tATTEMPT\tSTEPS\tPASSED\tREASONS")
	for _, a := range attempts {
		reasons := "-"
		if len(a.Reasons) > 0 {
			reasons = ""
			for i, r := range a.Reasons {
				if i > 0 {
					reasons += "; "
				}
				reasons += r.Code
			}
		}
		if a.Error != "" {
			reasons += " (" + a.Error + ")"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n", a.Stage, a.Attempt, a.StepsUsed, a.Passed, reasons)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !withReport {
		return nil
	}
	rep, err := archive.GetReport(ctx, runID)
	if err != nil {
		return err
	}
	if rep == nil {
		_, _ = fmt.Fprintln(out, "\nno report archived for this run")
		return nil
	}
	md, err := report.RenderMarkdown(rep)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\n%s", md)
	return nil
}
