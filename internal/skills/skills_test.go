package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/career-agent/internal/types"
)

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"golang":          "Go",
		"  K8s ":          "Kubernetes",
		"postgres":        "PostgreSQL",
		"Event  Sourcing": "Event Sourcing",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Canonical(in), in)
	}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"Go", "Docker"}, Dedupe([]string{"golang", "Go", "docker", " ", "GO"}))
}

func TestRequired_CountsPerListingAndSkipsUnavailable(t *testing.T) {
	listings := []types.JobListing{
		{Company: "Grab", Requirements: []string{"Go", "Kafka", "golang"}, Source: types.SourceFetched},
		{Company: "Shopee", Requirements: []string{"kafka", "Kubernetes"}, Source: types.SourceCached},
		{Company: "Sea", Requirements: []string{"Rust"}, Source: types.SourceUnavailable},
	}

	got := Required(listings)
	assert.Equal(t, []Demand{{"Kafka", 2}, {"Go", 1}, {"Kubernetes", 1}}, got)
	assert.Equal(t, []string{"Kafka", "Go", "Kubernetes"}, Names(got))
}

func TestMissing(t *testing.T) {
	resume := []string{"golang", "Docker", "SQL", "Python", "Linux"}
	required := []string{"Go", "Kafka", "kafka", "Kubernetes", "sql"}
	assert.Equal(t, []string{"Kafka", "Kubernetes"}, Missing(resume, required))
	assert.Empty(t, Missing(resume, []string{"Go", "Docker"}))
}

func TestRelevant(t *testing.T) {
	assert.True(t, Relevant("k8s", []string{"Kubernetes", "Go"}))
	assert.False(t, Relevant("Rust", []string{"Go"}))
}
