package types

import "time"

// ListingSource records where a listing came from.
type ListingSource string

// Listing sources.
const (
	SourceCached      ListingSource = "cached"
	SourceFetched     ListingSource = "fetched"
	SourceUnavailable ListingSource = "unavailable"
)

// SalaryUnknown is the explicit marker for a salary that could not be determined.
const SalaryUnknown = "unknown"

// JobListing is one open role at a candidate company.
type JobListing struct {
	Company      string        `json:"company"`
	RoleTitle    string        `json:"role_title"`
	Location     string        `json:"location"`
	Salary       *string       `json:"salary"`
	Requirements []string      `json:"requirements"`
	Source       ListingSource `json:"source"`
	URL          string        `json:"url,omitempty"`
	Excerpt      string        `json:"excerpt,omitempty"`
}

// Clone returns a deep copy of the listing.
func (l JobListing) Clone() JobListing {
	out := l
	if l.Salary != nil {
		s := *l.Salary
		out.Salary = &s
	}
	out.Requirements = append([]string(nil), l.Requirements...)
	return out
}

// ListingSet is the Listing-Finder artifact.
type ListingSet struct {
	Listings []JobListing `json:"listings"`
	// CompaniesSearched lists every company the worker resolved, from cache or externally.
	CompaniesSearched []string `json:"companies_searched"`
	CacheHits         int      `json:"cache_hits"`
	ExternalLookups   int      `json:"external_lookups"`
}

// ArtifactStage implements Artifact.
func (s *ListingSet) ArtifactStage() StageID { return StageListingFinder }

// Clone returns a deep copy.
func (s *ListingSet) Clone() *ListingSet {
	if s == nil {
		return nil
	}
	out := *s
	out.Listings = make([]JobListing, len(s.Listings))
	for i, l := range s.Listings {
		out.Listings[i] = l.Clone()
	}
	out.CompaniesSearched = append([]string(nil), s.CompaniesSearched...)
	return &out
}

// CacheEntry is a persisted resolution of a normalized (company, role) pair.
type CacheEntry struct {
	Key      string       `json:"key"`
	Company  string       `json:"company"`
	Role     string       `json:"role"`
	Listings []JobListing `json:"listings"`
	Tags     []string     `json:"tags,omitempty"`
	// CreatedAt is the original creation marker and survives upserts.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the freshness marker, bumped on every write.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (e CacheEntry) Clone() CacheEntry {
	out := e
	out.Listings = make([]JobListing, len(e.Listings))
	for i, l := range e.Listings {
		out.Listings[i] = l.Clone()
	}
	out.Tags = append([]string(nil), e.Tags...)
	return out
}
