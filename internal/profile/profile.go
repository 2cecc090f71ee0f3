// Package profile turns cleaned resume text into a ResumeProfile.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/llm"
	"github.com/jonathan/career-agent/internal/prompts"
	"github.com/jonathan/career-agent/internal/schemas"
	"github.com/jonathan/career-agent/internal/skills"
	"github.com/jonathan/career-agent/internal/types"
)

// ErrNoSkills is returned when neither extraction path finds any skill.
var ErrNoSkills = errors.New("no skills found in resume")

var validate = validator.New()

type llmProfile struct {
	Skills          []string `json:"skills"`
	YearsExperience float64  `json:"years_experience"`
	PriorRoles      []string `json:"prior_roles"`
	Education       string   `json:"education"`
}

// Extractor builds profiles, preferring the LLM and falling back to keyword heuristics.
type Extractor struct {
	client llm.Client
	log    *zap.Logger
}

// NewExtractor creates an extractor. client may be nil for heuristic-only extraction.
func NewExtractor(client llm.Client, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{client: client, log: log}
}

// Extract returns the profile for a resume. The result is tagged and validated.
func (e *Extractor) Extract(ctx context.Context, text string) (*types.ResumeProfile, error) {
	var p *types.ResumeProfile
	if e.client != nil {
		var err error
		p, err = e.extractLLM(ctx, text)
		if err != nil {
			e.log.Warn("llm profile extraction failed, using heuristics", zap.Error(err))
		}
	}

	h := Heuristic(text)
	if p == nil {
		p = h
	} else {
		merge(p, h)
	}

	if len(p.Skills) == 0 {
		return nil, ErrNoSkills
	}
	p.Tags = BackgroundTags(p)

	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

func (e *Extractor) extractLLM(ctx context.Context, text string) (*types.ResumeProfile, error) {
	prompt := prompts.Format(prompts.Agent(prompts.KeyExtractProfile), map[string]string{"Resume": text})
	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, err
	}
	if err := schemas.Validate(schemas.Profile, raw); err != nil {
		return nil, err
	}
	var out llmProfile
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &types.ResumeProfile{
		Skills:          skills.Dedupe(out.Skills),
		YearsExperience: out.YearsExperience,
		PriorRoles:      trimAll(out.PriorRoles),
		Education:       strings.TrimSpace(out.Education),
	}, nil
}

// merge fills fields the LLM left empty from the heuristic profile.
func merge(p, h *types.ResumeProfile) {
	if len(p.Skills) == 0 {
		p.Skills = h.Skills
	}
	if p.YearsExperience == 0 {
		p.YearsExperience = h.YearsExperience
	}
	if len(p.PriorRoles) == 0 {
		p.PriorRoles = h.PriorRoles
	}
	if p.Education == "" {
		p.Education = h.Education
	}
}

var (
	yearsRe     = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d)?)\s*\+?\s*(?:years?|yrs?)`)
	educationRe = regexp.MustCompile(`(?i)\b(ph\.?d|doctor|master|m\.?sc|m\.?s\.|mba|bachelor|b\.?sc|b\.?eng|b\.?s\.|degree)\b`)
	roleRe      = regexp.MustCompile(`(?i)\b(engineer|developer|manager|analyst|scientist|architect|consultant|intern|lead)\b`)
	tokenSplit  = regexp.MustCompile(`[^\p{L}\p{N}+#./]+`)
)

// ambiguous skills are also common words; they only count when capitalized.
var ambiguous = map[string]bool{"go": true, "rest": true, "spark": true, "ml": true}

// Heuristic extracts a profile with keyword rules only.
func Heuristic(text string) *types.ResumeProfile {
	p := &types.ResumeProfile{}

	vocab := skills.Vocabulary()
	var found []string
	tokens := tokenSplit.Split(text, -1)
	for i := range tokens {
		tokens[i] = strings.Trim(tokens[i], "./")
	}
	for i, tok := range tokens {
		if c, ok := vocab[strings.ToLower(tok)]; ok && (!ambiguous[strings.ToLower(tok)] || tok != strings.ToLower(tok)) {
			found = append(found, c)
		}
		if i+1 < len(tokens) {
			if c, ok := vocab[strings.ToLower(tok+" "+tokens[i+1])]; ok {
				found = append(found, c)
			}
		}
	}
	p.Skills = skills.Dedupe(found)

	for _, m := range yearsRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v <= 60 {
			p.YearsExperience = math.Max(p.YearsExperience, v)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#-*• "))
		if line == "" {
			continue
		}
		if p.Education == "" && educationRe.MatchString(line) {
			p.Education = line
			continue
		}
		if len(line) <= 80 && roleRe.MatchString(line) && len(p.PriorRoles) < 5 {
			p.PriorRoles = append(p.PriorRoles, line)
		}
	}
	return p
}

// BackgroundTags derives labels used to build market queries:
// degree level, field of study, seniority band and the leading skills.
func BackgroundTags(p *types.ResumeProfile) []string {
	var tags []string

	edu := strings.ToLower(p.Education)
	switch {
	case strings.Contains(edu, "phd") || strings.Contains(edu, "ph.d") || strings.Contains(edu, "doctor"):
		tags = append(tags, "phd")
	case strings.Contains(edu, "master") || strings.Contains(edu, "msc") || strings.Contains(edu, "m.sc") || strings.Contains(edu, "mba"):
		tags = append(tags, "master")
	case strings.Contains(edu, "bachelor") || strings.Contains(edu, "bsc") || strings.Contains(edu, "b.sc") || strings.Contains(edu, "b.eng"):
		tags = append(tags, "bachelor")
	}

	for _, field := range []string{"computer science", "software engineering", "data science", "electrical", "mathematics", "statistics", "information technology"} {
		if strings.Contains(edu, field) {
			tags = append(tags, field)
			break
		}
	}

	tags = append(tags, SeniorityBand(p.YearsExperience))

	top := append([]string(nil), p.Skills...)
	if len(top) > 3 {
		top = top[:3]
	}
	for _, s := range top {
		tags = append(tags, strings.ToLower(s))
	}

	return tags
}

// SeniorityBand buckets years of experience.
func SeniorityBand(years float64) string {
	switch {
	case years < 2:
		return "junior"
	case years < 5:
		return "mid"
	case years < 10:
		return "senior"
	default:
		return "staff"
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
