package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/career-agent/internal/metrics"
	"github.com/jonathan/career-agent/internal/types"
)

var batchCommand = &cobra.Command{
	Use:   "batch <resume>...",
	Short: "Produce career plans for several resumes concurrently",
	Long: `Plans every resume given on the command line. Runs share one lookup cache and one archive,
and each writes <out-dir>/<resume name>.md.

A failing run does not stop the others; all failures are reported together.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatchCmd,
}

var (
	batchFlags       planFlags
	batchOutDir      string
	batchConcurrency int
	batchMetricsAddr string
)

func init() {
	batchFlags.register(batchCommand)
	batchCommand.Flags().StringVar(&batchOutDir, "out-dir", "reports", "Directory the reports are written to")
	batchCommand.Flags().IntVar(&batchConcurrency, "concurrency", 2, "Maximum runs in flight")
	batchCommand.Flags().StringVar(&batchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the batch runs, e.g. :9090")

	rootCmd.AddCommand(batchCommand)
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	if batchConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", batchConcurrency)
	}
	cfg, err := batchFlags.resolve(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if batchMetricsAddr != "" {
		shutdown := serveMetrics(batchMetricsAddr, log)
		defer shutdown()
	}

	rt, err := newRuntime(ctx, cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.Close()

	return runBatch(ctx, args, batchOutDir, batchConcurrency, cmd.OutOrStdout(), rt.plan)
}

// planFunc plans one resume and writes its report to output.
type planFunc func(ctx context.Context, resumePath, output string) (*types.Report, error)

// runBatch plans each resume with at most limit runs in flight. Every resume is attempted;
// the returned error joins the failures.
func runBatch(ctx context.Context, resumes []string, outDir string, limit int, out io.Writer, plan planFunc) error {
	outputs, err := reportPaths(resumes, outDir)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, resume := range resumes {
		g.Go(func() error {
			rep, err := plan(gctx, resume, outputs[i])
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				err = summarize(out, rep, outputs[i])
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", resume, err))
			}
			// Failures are collected rather than returned so one bad resume does not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// reportPaths maps each resume to <outDir>/<base name>.md, rejecting collisions.
func reportPaths(resumes []string, outDir string) ([]string, error) {
	seen := make(map[string]string, len(resumes))
	paths := make([]string, len(resumes))
	for i, resume := range resumes {
		base := strings.TrimSuffix(filepath.Base(resume), filepath.Ext(resume))
		path := filepath.Join(outDir, base+".md")
		if prev, ok := seen[path]; ok {
			return nil, fmt.Errorf("resumes %s and %s would both write %s", prev, resume, path)
		}
		seen[path] = resume
		paths[i] = path
	}
	return paths, nil
}

// serveMetrics exposes /metrics until the returned shutdown func is called.
func serveMetrics(addr string, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
}
