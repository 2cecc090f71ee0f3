package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-agent/internal/llm"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateContent(ctx, prompt, tier)
}

func (f *fakeLLM) Close() error { return nil }

const sampleResume = `# Jane Doe
Backend Engineer at Fintech Co (2020-2024)
Software Developer at Agency
- Built payment services in Go and PostgreSQL, deployed with Docker on k8s
- 6 years of experience; ready to go anywhere
Education: Bachelor of Computer Science, University of Malaya
Skills: Python, Redis, machine learning`

func TestHeuristic(t *testing.T) {
	p := Heuristic(sampleResume)

	assert.ElementsMatch(t, []string{"Go", "PostgreSQL", "Docker", "Kubernetes", "Python", "Redis", "Machine Learning"}, p.Skills)
	assert.Equal(t, 6.0, p.YearsExperience)
	assert.Equal(t, "Education: Bachelor of Computer Science, University of Malaya", p.Education)
	assert.Contains(t, p.PriorRoles, "Backend Engineer at Fintech Co (2020-2024)")
	assert.Contains(t, p.PriorRoles, "Software Developer at Agency")
}

func TestHeuristic_LowercaseGoIsNotASkill(t *testing.T) {
	p := Heuristic("I will go the extra mile. Tools: Docker")
	assert.Equal(t, []string{"Docker"}, p.Skills)
}

func TestExtract_UsesLLMAndTags(t *testing.T) {
	client := &fakeLLM{response: `{"skills":["golang","Kafka","golang"],"years_experience":3,"prior_roles":["Backend Engineer"],"education":"MSc Data Science"}`}

	p, err := NewExtractor(client, nil).Extract(context.Background(), sampleResume)
	require.NoError(t, err)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Jane Doe")

	assert.Equal(t, []string{"Go", "Kafka"}, p.Skills)
	assert.Equal(t, 3.0, p.YearsExperience)
	assert.Equal(t, []string{"master", "data science", "mid", "go", "kafka"}, p.Tags)
}

func TestExtract_FallsBackOnLLMError(t *testing.T) {
	client := &fakeLLM{err: errors.New("quota")}

	p, err := NewExtractor(client, nil).Extract(context.Background(), sampleResume)
	require.NoError(t, err)
	assert.Contains(t, p.Skills, "PostgreSQL")
	assert.Contains(t, p.Tags, "bachelor")
	assert.Contains(t, p.Tags, "senior")
}

func TestExtract_FallsBackOnSchemaViolation(t *testing.T) {
	client := &fakeLLM{response: `{"years_experience":"many"}`}

	p, err := NewExtractor(client, nil).Extract(context.Background(), sampleResume)
	require.NoError(t, err)
	assert.Contains(t, p.Skills, "Docker")
}

func TestExtract_NoSkills(t *testing.T) {
	_, err := NewExtractor(nil, nil).Extract(context.Background(), "Hobbies: hiking and cooking")
	assert.ErrorIs(t, err, ErrNoSkills)
}

func TestSeniorityBand(t *testing.T) {
	assert.Equal(t, "junior", SeniorityBand(0))
	assert.Equal(t, "mid", SeniorityBand(2))
	assert.Equal(t, "senior", SeniorityBand(9.5))
	assert.Equal(t, "staff", SeniorityBand(12))
}
