// Package prompts holds the embedded prompt templates for profile extraction and the stage workers.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed agents.json
var agentsJSON []byte

// Prompt keys.
const (
	KeyExtractProfile = "extract-profile"
	KeyRankCompanies  = "rank-companies"
	KeyExtractListing = "extract-listing"
	KeyCoachGaps      = "coach-gaps"
	KeyFeedback       = "feedback"
	KeyJSONCorrection = "json-correction"
)

var placeholderRe = regexp.MustCompile(`\{\{\.([A-Za-z]+)\}\}`)

var loadAgents = sync.OnceValues(func() (map[string]string, error) {
	var prompts map[string]string
	if err := json.Unmarshal(agentsJSON, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse agents.json: %w", err)
	}
	return prompts, nil
})

// Get returns the template stored under key.
func Get(key string) (string, error) {
	prompts, err := loadAgents()
	if err != nil {
		return "", err
	}
	prompt, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	return prompt, nil
}

// Agent is Get for keys compiled into the binary; a missing key panics.
func Agent(key string) string {
	prompt, err := Get(key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Keys returns every prompt key, sorted.
func Keys() []string {
	prompts, err := loadAgents()
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(prompts))
	for k := range prompts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format replaces {{.Key}} placeholders with values from data.
// Placeholders without a value are blanked.
func Format(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		return data[placeholderRe.FindStringSubmatch(m)[1]]
	})
}

// Placeholders lists the distinct field names a template refers to, sorted.
func Placeholders(template string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	sort.Strings(out)
	return out
}

// Excerpt trims text to at most n runes on a line boundary where possible.
func Excerpt(text string, n int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= n {
		return string(r)
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, '\n'); i > n/2 {
		cut = cut[:i]
	}
	return cut + "\n[truncated]"
}
