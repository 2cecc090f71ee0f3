// Package skills canonicalizes skill names and computes the skills a set of listings
// requires that a resume lacks.
package skills

import (
	"strings"
)

// aliases maps common skill name variants to canonical names.
var aliases = map[string]string{
	"golang":           "Go",
	"go lang":          "Go",
	"go":               "Go",
	"javascript":       "JavaScript",
	"js":               "JavaScript",
	"typescript":       "TypeScript",
	"ts":               "TypeScript",
	"k8s":              "Kubernetes",
	"kubernetes":       "Kubernetes",
	"react.js":         "React",
	"reactjs":          "React",
	"vue.js":           "Vue",
	"vuejs":            "Vue",
	"node.js":          "Node.js",
	"nodejs":           "Node.js",
	"postgres":         "PostgreSQL",
	"postgresql":       "PostgreSQL",
	"mysql":            "MySQL",
	"aws":              "AWS",
	"gcp":              "GCP",
	"google cloud":     "GCP",
	"ci/cd":            "CI/CD",
	"cicd":             "CI/CD",
	"ml":               "Machine Learning",
	"machine learning": "Machine Learning",
	"pytorch":          "PyTorch",
	"tensorflow":       "TensorFlow",
	"sql":              "SQL",
	"nosql":            "NoSQL",
	"grpc":             "gRPC",
	"rest":             "REST",
	"restful":          "REST",
	"docker":           "Docker",
	"kafka":            "Kafka",
	"redis":            "Redis",
	"python":           "Python",
	"java":             "Java",
	"c++":              "C++",
	"cpp":              "C++",
	"rust":             "Rust",
	"linux":            "Linux",
	"terraform":        "Terraform",
	"spark":            "Spark",
}

// Canonical returns the canonical display form of a skill name.
func Canonical(name string) string {
	trimmed := strings.Join(strings.Fields(name), " ")
	if trimmed == "" {
		return ""
	}
	if canonical, ok := aliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Key returns the comparison key of a skill name.
func Key(name string) string {
	return strings.ToLower(Canonical(name))
}

// Vocabulary returns the canonical names of all known skills.
func Vocabulary() map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

// Dedupe canonicalizes names and removes duplicates, keeping first-seen order.
func Dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		c := Canonical(n)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		out = append(out, c)
	}
	return out
}
