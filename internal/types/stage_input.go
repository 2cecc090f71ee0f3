package types

// StageInput is everything a worker receives for one attempt.
type StageInput struct {
	Profile      *ResumeProfile     `json:"profile"`
	TargetRole   string             `json:"target_role"`
	MaxCompanies int                `json:"max_companies"`
	Candidates   []CompanyCandidate `json:"candidates,omitempty"`
	Listings     []JobListing       `json:"listings,omitempty"`
	// Feedback carries the rejection reasons of the previous attempt.
	Feedback []Rejection `json:"feedback,omitempty"`
	Attempt  int         `json:"attempt"`
}
