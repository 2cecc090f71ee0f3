package skills

import (
	"sort"
	"strings"

	"github.com/jonathan/career-agent/internal/types"
)

// Demand is a required skill and the number of listings asking for it.
type Demand struct {
	Name  string
	Count int
}

// Required tallies the requirements of the listings, most demanded first.
// Ties keep first-seen order. Unavailable listings carry no requirements worth counting.
func Required(listings []types.JobListing) []Demand {
	index := make(map[string]int)
	var out []Demand
	for _, l := range listings {
		if l.Source == types.SourceUnavailable {
			continue
		}
		seenInListing := make(map[string]bool)
		for _, req := range l.Requirements {
			name := Canonical(req)
			key := strings.ToLower(name)
			if name == "" || seenInListing[key] {
				continue
			}
			seenInListing[key] = true
			if i, ok := index[key]; ok {
				out[i].Count++
				continue
			}
			index[key] = len(out)
			out = append(out, Demand{Name: name, Count: 1})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Names returns the skill names of a demand list.
func Names(demand []Demand) []string {
	out := make([]string, len(demand))
	for i, d := range demand {
		out[i] = d.Name
	}
	return out
}

// Missing returns the required skills the resume does not cover, in required order.
func Missing(resume, required []string) []string {
	have := make(map[string]bool, len(resume))
	for _, s := range resume {
		have[Key(s)] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, r := range required {
		k := Key(r)
		if k == "" || have[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Canonical(r))
	}
	return out
}

// Relevant reports whether a skill appears among a listing's requirements.
func Relevant(skill string, requirements []string) bool {
	k := Key(skill)
	for _, r := range requirements {
		if Key(r) == k {
			return true
		}
	}
	return false
}
