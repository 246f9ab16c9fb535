package model

// Weakness is a derived, reusable description of a recurring error pattern
// found in a learner's incorrect answers. Produced by stage 3, immutable
// thereafter.
type Weakness struct {
	ID                  string  `json:"id"`
	Text                string  `json:"text"`
	Description         string  `json:"description,omitempty"`
	Importance          float64 `json:"importance"`
	PatternType         string  `json:"patternType"`
	EvidenceQuestionIDs []int   `json:"evidenceQuestionIds"`
	Frequency           int     `json:"frequency"`
}

// CourseRef identifies a recommendable course in the catalog.
type CourseRef struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
}

// CourseRecommendation is a scored candidate course linked to a specific
// weakness via semantic similarity search. Produced by stage 4.
type CourseRecommendation struct {
	WeaknessID string    `json:"weaknessId"`
	Score      float64   `json:"score"`
	Course     CourseRef `json:"course"`
	Reason     string    `json:"reason,omitempty"`
}

// Summary is the narrative portion of the user-facing response. The shape is
// identical whether it was generated by the model or built deterministically.
type Summary struct {
	CurrentPerformance string   `json:"currentPerformance"`
	AreaToImprove      string   `json:"areaToBeImproved"`
	RecommendedCourses []string `json:"recommendedCourses"`
}

// RecommendationEntry is one course entry in the user-facing response.
type RecommendationEntry struct {
	CourseID         string `json:"courseId"`
	CourseTitle      string `json:"courseTitle"`
	TargetWeaknessID string `json:"targetWeaknessId"`
	Explanation      string `json:"explanation"`
}

// UserFacingResponse is the final stage-5 output shown to the learner.
type UserFacingResponse struct {
	Summary         Summary               `json:"summary"`
	Recommendations []RecommendationEntry `json:"recommendations"`
}
