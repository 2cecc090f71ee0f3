package types

// SkillGap is a skill the listings require that the resume lacks, with a concrete resource.
type SkillGap struct {
	Skill         string `json:"skill"`
	Resource      string `json:"resource"`
	ResourceURL   string `json:"resource_url,omitempty"`
	Justification string `json:"justification"`
}

// GapAnalysis is the Gap-Coach artifact.
type GapAnalysis struct {
	Gaps []SkillGap `json:"gaps"`
	// ResumeSkills and RequiredSkills snapshot the inputs the analysis was computed against,
	// so the artifact can be judged on its own.
	ResumeSkills   []string `json:"resume_skills"`
	RequiredSkills []string `json:"required_skills"`
}

// ArtifactStage implements Artifact.
func (g *GapAnalysis) ArtifactStage() StageID { return StageGapCoach }

// Clone returns a deep copy.
func (g *GapAnalysis) Clone() *GapAnalysis {
	if g == nil {
		return nil
	}
	out := *g
	out.Gaps = append([]SkillGap(nil), g.Gaps...)
	out.ResumeSkills = append([]string(nil), g.ResumeSkills...)
	out.RequiredSkills = append([]string(nil), g.RequiredSkills...)
	return &out
}
