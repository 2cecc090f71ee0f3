package types

// ResumeProfile holds the structured facts extracted from an input resume.
// It is created once per run and treated as immutable afterwards.
type ResumeProfile struct {
	Skills          []string `json:"skills" validate:"required,min=1,dive,required"`
	YearsExperience float64  `json:"years_experience" validate:"gte=0,lte=60"`
	PriorRoles      []string `json:"prior_roles"`
	Education       string   `json:"education"`
	// Tags are background labels (degree level, field, seniority) used for market search.
	Tags []string `json:"tags,omitempty"`
}

// Clone returns a deep copy of the profile.
func (p *ResumeProfile) Clone() *ResumeProfile {
	if p == nil {
		return nil
	}
	out := *p
	out.Skills = append([]string(nil), p.Skills...)
	out.PriorRoles = append([]string(nil), p.PriorRoles...)
	out.Tags = append([]string(nil), p.Tags...)
	return &out
}
