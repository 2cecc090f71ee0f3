package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Bucket classes with special meaning.
const (
	ClassDefault   = "default"
	ClassUnlimited = "unlimited"
	ClassPlan      = "plan"
)

// EndpointConfig limits one method and path. A Path ending in "/" also covers
// everything beneath it. Endpoints sharing a Class share one bucket per client.
type EndpointConfig struct {
	Class  string
	Path   string
	Method string
	Limit  int // requests per Window
	Window time.Duration
	Burst  int // 0 means Limit
}

func (e EndpointConfig) covers(path, method string) (exact, prefix bool) {
	if e.Method != method {
		return false, false
	}
	if e.Path == path {
		return true, false
	}
	return false, strings.HasSuffix(e.Path, "/") && strings.HasPrefix(path, e.Path)
}

// MatchEndpoint returns the config governing a request, or nil for the default limit.
// Exact paths win over prefixes; health probes and metric scrapes are never limited.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" && (path == "/health" || path == "/metrics") {
		return &EndpointConfig{Class: ClassUnlimited}
	}

	var byPrefix *EndpointConfig
	for i := range configs {
		exact, prefix := configs[i].covers(path, method)
		if exact {
			return &configs[i]
		}
		if prefix && byPrefix == nil {
			byPrefix = &configs[i]
		}
	}
	return byPrefix
}

// DefaultEndpointConfigs puts both run endpoints in the strict "plan" class; each run
// drives model calls and web lookups. Archive reads fall under the default limit.
func DefaultEndpointConfigs(planLimit int, planWindow time.Duration) []EndpointConfig {
	plan := EndpointConfig{Class: ClassPlan, Method: "POST", Limit: planLimit, Window: planWindow, Burst: 2}
	runs, stream := plan, plan
	runs.Path = "/runs"
	stream.Path = "/runs/stream"
	return []EndpointConfig{runs, stream}
}

// LoadConfig reads RATE_LIMIT_* environment variables. Unparseable values fall back to defaults.
func LoadConfig() *Config {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) *Config {
	e := envReader(getenv)
	if !e.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    e.int("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   e.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: e.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       e.set("RATE_LIMIT_WHITELIST"),
		Blacklist:       e.set("RATE_LIMIT_BLACKLIST"),
		EndpointConfigs: DefaultEndpointConfigs(
			e.int("RATE_LIMIT_PLAN_LIMIT", 10),
			e.duration("RATE_LIMIT_PLAN_WINDOW", time.Hour),
		),
	}
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if n, err := strconv.Atoi(e(key)); err == nil {
		return n
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(e(key)); err == nil {
		return b
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e(key)); err == nil {
		return d
	}
	return def
}

// set parses a comma-separated list of client IPs.
func (e envReader) set(key string) map[string]bool {
	out := make(map[string]bool)
	for _, item := range strings.Split(e(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
