package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/agent"
	"github.com/jonathan/career-agent/internal/cache"
	"github.com/jonathan/career-agent/internal/config"
	"github.com/jonathan/career-agent/internal/db"
	"github.com/jonathan/career-agent/internal/fetch"
	"github.com/jonathan/career-agent/internal/ingestion"
	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/observability"
	"github.com/jonathan/career-agent/internal/pipeline"
	"github.com/jonathan/career-agent/internal/profile"
	"github.com/jonathan/career-agent/internal/report"
	"github.com/jonathan/career-agent/internal/search"
	"github.com/jonathan/career-agent/internal/types"
)

var _ pipeline.Archive = (*db.DB)(nil)

// planFlags are the flags shared by run and batch.
type planFlags struct {
	configPath    string
	resume        string
	targetRole    string
	output        string
	template      string
	cacheFile     string
	maxCompanies  int
	maxTotalSteps int
	maxWallClock  string
	provider      string
	apiKey        string
	useBrowser    bool
	verbose       bool
	databaseURL   string
}

func (f *planFlags) register(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	cmd.Flags().StringVarP(&f.targetRole, "role", "r", "", "Target role (defaults to the most recent role on the resume)")
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "Path to a custom report template")
	cmd.Flags().StringVar(&f.cacheFile, "cache", "", "Path to the lookup cache file")
	cmd.Flags().IntVar(&f.maxCompanies, "max-companies", 0, "Maximum companies the Listing-Finder searches")
	cmd.Flags().IntVar(&f.maxTotalSteps, "max-steps", 0, "Run-level ceiling on tool calls across all stages")
	cmd.Flags().StringVar(&f.maxWallClock, "timeout", "", "Run-level wall-clock ceiling, e.g. 10m")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Generation provider: gemini or anthropic")
	cmd.Flags().BoolVar(&f.useBrowser, "use-browser", false, "Use headless browser for SPA listing pages (requires Chrome)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY / ANTHROPIC_API_KEY
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key for the selected provider (optional, defaults to the provider env var)")

	// Database URL for run persistence
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

// resolve loads the config file, applies explicitly set flags, then env values and defaults.
func (f *planFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("resume") {
		cfg.Resume = f.resume
	}
	if flags.Changed("role") {
		cfg.TargetRole = f.targetRole
	}
	if flags.Changed("out") {
		cfg.Output = f.output
	}
	if flags.Changed("template") {
		cfg.Template = f.template
	}
	if flags.Changed("cache") {
		cfg.CacheFile = f.cacheFile
	}
	if flags.Changed("max-companies") {
		cfg.MaxCompanies = f.maxCompanies
	}
	if flags.Changed("max-steps") {
		cfg.MaxTotalSteps = f.maxTotalSteps
	}
	if flags.Changed("timeout") {
		cfg.MaxWallClock = f.maxWallClock
	}
	if flags.Changed("provider") {
		cfg.Provider = f.provider
	}
	if flags.Changed("use-browser") {
		cfg.UseBrowser = f.useBrowser
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}

	cfg = cfg.MergeWithDefaults(config.FromEnv())
	cfg = cfg.MergeWithDefaults(config.Defaults())

	// The key belongs to whichever provider won the merge.
	if flags.Changed("api-key") {
		if cfg.Provider == string(llm.ProviderAnthropic) {
			cfg.AnthropicAPIKey = f.apiKey
		} else {
			cfg.APIKey = f.apiKey
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the process logger; verbose runs get the development encoder.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		TargetRole:    cfg.TargetRole,
		MaxCompanies:  cfg.MaxCompanies,
		MaxRetries:    cfg.RetriesByStage(),
		StepBudgets:   cfg.BudgetsByStage(),
		MaxTotalSteps: cfg.MaxTotalSteps,
		MaxWallClock:  cfg.WallClock(),
	}
}

func providerKey(cfg config.Config, provider llm.Provider) (string, error) {
	if provider == llm.ProviderAnthropic {
		if cfg.AnthropicAPIKey == "" {
			return "", fmt.Errorf("ANTHROPIC_API_KEY environment variable or --api-key flag is required")
		}
		return cfg.AnthropicAPIKey, nil
	}
	if cfg.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	return cfg.APIKey, nil
}

func openCache(cfg config.Config, log *zap.Logger) *cache.Store {
	opts := []cache.Option{cache.WithLogger(log)}
	if d := cfg.StaleAfter(); d > 0 {
		opts = append(opts, cache.WithFreshness(cache.StaleAfter(d)))
	}
	return cache.Open(cfg.CacheFile, opts...)
}

// runtime holds everything constructed once per process and shared by its runs.
type runtime struct {
	cfg          config.Config
	log          *zap.Logger
	printer      *observability.Printer
	client       llm.Client
	store        *cache.Store
	database     *db.DB
	extractor    *profile.Extractor
	orchestrator *pipeline.Orchestrator
}

func newRuntime(ctx context.Context, cfg config.Config, log *zap.Logger, out io.Writer) (*runtime, error) {
	provider, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	apiKey, err := providerKey(cfg, provider)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ctx, llm.ConfigFor(provider), apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log, client: client}
	if cfg.Verbose {
		rt.printer = observability.NewPrinter(out)
	}

	deps := agent.Deps{
		LLM:  client,
		Code: search.NewGitHubSearcher(cfg.GitHubToken),
		Log:  log,
	}
	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		if deps.Market, err = search.NewGoogleSearcher(ctx, cfg.SearchAPIKey, cfg.SearchEngineID, "market"); err != nil {
			rt.Close()
			return nil, err
		}
		if deps.Listings, err = search.NewGoogleSearcher(ctx, cfg.SearchAPIKey, cfg.SearchEngineID, "listings", search.ListingSites...); err != nil {
			rt.Close()
			return nil, err
		}
	} else {
		log.Warn("web search not configured; market and listing lookups will fall back to the cache")
	}

	var render fetch.RenderFunc
	if cfg.UseBrowser {
		render = fetch.WithBrowser
	}
	deps.Visitor = fetch.NewVisitor(log, render)

	rt.store = openCache(cfg, log)
	deps.Cache = rt.store

	var opts []pipeline.Option
	if rt.printer != nil {
		opts = append(opts, pipeline.WithPrinter(rt.printer))
	}

	// Initialize database connection if configured
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("failed to connect to database; continuing without run persistence", zap.Error(err))
		} else if err := database.EnsureSchema(ctx); err != nil {
			log.Warn("failed to prepare database schema; continuing without run persistence", zap.Error(err))
			database.Close()
		} else {
			rt.database = database
			opts = append(opts, pipeline.WithArchive(database))
		}
	}

	rt.extractor = profile.NewExtractor(client, log)
	rt.orchestrator, err = pipeline.New(pipelineConfig(cfg), agent.Workers(deps), log, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases the LLM client and database pool.
func (rt *runtime) Close() {
	if rt.client != nil {
		_ = rt.client.Close()
	}
	if rt.database != nil {
		rt.database.Close()
	}
}

// plan runs one resume file end to end and writes the report to output.
func (rt *runtime) plan(ctx context.Context, resumePath, output string) (*types.Report, error) {
	resume, err := ingestion.LoadResume(resumePath)
	if err != nil {
		return nil, err
	}
	rep, err := rt.planResume(ctx, resume)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resumePath, err)
	}
	if err := writeReport(rep, output, rt.cfg.Template); err != nil {
		return rep, err
	}
	return rep, nil
}

// Plan runs pasted resume text end to end; it backs the HTTP API.
func (rt *runtime) Plan(ctx context.Context, resumeText string, opts ...pipeline.RunOption) (*types.Report, error) {
	resume, err := ingestion.FromText("", resumeText)
	if err != nil {
		return nil, err
	}
	return rt.planResume(ctx, resume, opts...)
}

func (rt *runtime) planResume(ctx context.Context, resume *ingestion.Resume, opts ...pipeline.RunOption) (*types.Report, error) {
	// Extraction sits outside the stage machine; keep it bounded separately.
	extractCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	prof, err := rt.extractor.Extract(extractCtx, resume.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to extract profile: %w", err)
	}
	if rt.printer != nil {
		rt.printer.PrintResumeProfile(prof)
	}
	return rt.orchestrator.Run(ctx, prof, opts...)
}

func writeReport(rep *types.Report, output, templatePath string) error {
	if templatePath == "" {
		return report.Save(rep, output)
	}
	content, err := report.RenderWithTemplate(rep, templatePath)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	return nil
}
