package domain

type FeasibilityResult struct {
	IsFeasible bool     `json:"is_feasible"`
	Score      float64  `json:"score"`
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
}

type GroundingResult struct {
	IsGrounded       bool     `json:"is_grounded"`
	Score            float64  `json:"score"`
	MissingCitations []string `json:"missing_citations"`
	UncertainData    []string `json:"uncertain_data"`
}

type EditCorrectnessResult struct {
	IsCorrect         bool     `json:"is_correct"`
	ModifiedSections  []string `json:"modified_sections"`
	UnchangedSections []string `json:"unchanged_sections"`
	Violations        []string `json:"violations"`
}

// Evaluation bundles whichever evaluators ran for a mutation.
type Evaluation struct {
	Feasibility     *FeasibilityResult     `json:"feasibility,omitempty"`
	Grounding       *GroundingResult       `json:"grounding,omitempty"`
	EditCorrectness *EditCorrectnessResult `json:"edit_correctness,omitempty"`
}
