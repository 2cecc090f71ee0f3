// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/career-agent/internal/types"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Resume    string `json:"resume,omitempty" yaml:"resume,omitempty"`         // Path to resume text file
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`         // Report path (.md or .json)
	Template  string `json:"template,omitempty" yaml:"template,omitempty"`     // Optional report template
	CacheFile string `json:"cache_file,omitempty" yaml:"cache_file,omitempty"` // Lookup cache file

	// Planning
	TargetRole   string         `json:"target_role,omitempty" yaml:"target_role,omitempty"`
	MaxCompanies int            `json:"max_companies,omitempty" yaml:"max_companies,omitempty" validate:"gte=0,lte=5"`
	MaxRetries   map[string]int `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"dive,keys,stage,endkeys,gte=0,lte=5"`
	StepBudget   map[string]int `json:"step_budget,omitempty" yaml:"step_budget,omitempty" validate:"dive,keys,stage,endkeys,gte=1,lte=200"`

	// Run ceilings
	MaxTotalSteps   int    `json:"max_total_steps,omitempty" yaml:"max_total_steps,omitempty" validate:"gte=0"`
	MaxWallClock    string `json:"max_wall_clock,omitempty" yaml:"max_wall_clock,omitempty"`       // e.g. "10m"
	CacheStaleAfter string `json:"cache_stale_after,omitempty" yaml:"cache_stale_after,omitempty"` // e.g. "720h"; empty keeps entries fresh

	// Services
	Provider        string `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=gemini anthropic"`
	APIKey          string `json:"api_key,omitempty" yaml:"api_key,omitempty"`                     // Gemini API key
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty"` // Anthropic API key
	SearchAPIKey    string `json:"search_api_key,omitempty" yaml:"search_api_key,omitempty"`       // Google Custom Search key
	SearchEngineID  string `json:"search_engine_id,omitempty" yaml:"search_engine_id,omitempty"`   // Google Custom Search cx
	GitHubToken     string `json:"github_token,omitempty" yaml:"github_token,omitempty"`
	DatabaseURL     string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // Use headless browser for SPA listing pages
	Verbose    bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`         // Print detailed debug information
}

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		Output:       "career_report.md",
		CacheFile:    "career_cache.json",
		MaxCompanies: 3,
		MaxRetries: map[string]int{
			string(types.StageMarketAnalyst): 1,
			string(types.StageListingFinder): 1,
			string(types.StageGapCoach):      1,
		},
		StepBudget: map[string]int{
			string(types.StageMarketAnalyst): 8,
			string(types.StageListingFinder): 16,
			string(types.StageGapCoach):      20,
		},
		MaxTotalSteps: 100,
		MaxWallClock:  "10m",
		Provider:      "gemini",
	}
}

// FromEnv returns the values the environment supplies.
func FromEnv() Config {
	return Config{
		APIKey:          os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		SearchAPIKey:    os.Getenv("GOOGLE_SEARCH_API_KEY"),
		SearchEngineID:  os.Getenv("GOOGLE_SEARCH_CX"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Provider:        os.Getenv("LLM_PROVIDER"),
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		return types.StageID(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if _, err := parseDuration(c.MaxWallClock); err != nil {
		return fmt.Errorf("config error: 'max_wall_clock': %w", err)
	}
	if _, err := parseDuration(c.CacheStaleAfter); err != nil {
		return fmt.Errorf("config error: 'cache_stale_after': %w", err)
	}

	// Validate file paths exist (if specified)
	if c.Template != "" {
		if _, err := os.Stat(c.Template); os.IsNotExist(err) {
			return fmt.Errorf("config error: template file not found: %s", c.Template)
		}
	}
	if c.Resume != "" {
		if _, err := os.Stat(c.Resume); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.Resume)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.Resume, defaults.Resume)
	fill(&result.Output, defaults.Output)
	fill(&result.Template, defaults.Template)
	fill(&result.CacheFile, defaults.CacheFile)
	fill(&result.TargetRole, defaults.TargetRole)
	fill(&result.MaxWallClock, defaults.MaxWallClock)
	fill(&result.CacheStaleAfter, defaults.CacheStaleAfter)
	fill(&result.Provider, defaults.Provider)
	fill(&result.APIKey, defaults.APIKey)
	fill(&result.AnthropicAPIKey, defaults.AnthropicAPIKey)
	fill(&result.SearchAPIKey, defaults.SearchAPIKey)
	fill(&result.SearchEngineID, defaults.SearchEngineID)
	fill(&result.GitHubToken, defaults.GitHubToken)
	fill(&result.DatabaseURL, defaults.DatabaseURL)

	// Int fields: use default if zero
	if result.MaxCompanies == 0 {
		result.MaxCompanies = defaults.MaxCompanies
	}
	if result.MaxTotalSteps == 0 {
		result.MaxTotalSteps = defaults.MaxTotalSteps
	}

	// Map fields: per-stage values missing from c come from defaults
	result.MaxRetries = mergeStageMap(c.MaxRetries, defaults.MaxRetries)
	result.StepBudget = mergeStageMap(c.StepBudget, defaults.StepBudget)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeStageMap(values, defaults map[string]int) map[string]int {
	if len(values) == 0 && len(defaults) == 0 {
		return nil
	}
	out := make(map[string]int, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}

// WallClock returns the run wall-clock ceiling; zero means unbounded.
func (c *Config) WallClock() time.Duration {
	d, _ := parseDuration(c.MaxWallClock)
	return d
}

// StaleAfter returns the cache freshness horizon; zero keeps entries fresh forever.
func (c *Config) StaleAfter() time.Duration {
	d, _ := parseDuration(c.CacheStaleAfter)
	return d
}

// RetriesByStage returns max_retries keyed by stage.
func (c *Config) RetriesByStage() map[types.StageID]int {
	return byStage(c.MaxRetries)
}

// BudgetsByStage returns step_budget keyed by stage.
func (c *Config) BudgetsByStage() map[types.StageID]int {
	return byStage(c.StepBudget)
}

func byStage(m map[string]int) map[types.StageID]int {
	out := make(map[types.StageID]int, len(m))
	for k, v := range m {
		out[types.StageID(k)] = v
	}
	return out
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", s)
	}
	return d, nil
}
