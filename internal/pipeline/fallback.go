package pipeline

import (
	"fmt"
	"strings"

	"github.com/piloturl/test-analysis/internal/model"
)

// FallbackSummary deterministically builds a user-facing summary from
// whatever weaknesses and recommendations exist. It makes no external calls
// and cannot fail; its output shape is identical to the generated summary.
func FallbackSummary(weaknesses []model.Weakness, recs []model.CourseRecommendation) model.Summary {
	focusAreas := "the assessed skills"
	if len(weaknesses) > 0 {
		titles := make([]string, 0, 3)
		for _, w := range weaknesses {
			titles = append(titles, w.Text)
			if len(titles) == 3 {
				break
			}
		}
		focusAreas = strings.Join(titles, ", ")
	}

	courseLines := make([]string, 0, len(recs))
	for _, rec := range recs {
		courseLines = append(courseLines, fmt.Sprintf("%s targets weakness %s.", rec.Course.Title, rec.WeaknessID))
	}
	if len(courseLines) == 0 {
		courseLines = append(courseLines, "No course recommendations were generated.")
	}

	return model.Summary{
		CurrentPerformance: "We reviewed your recent performance and identified specific skills that would benefit from additional focus.",
		AreaToImprove: fmt.Sprintf(
			"Priority focus areas include %s. Strengthening these abilities will improve overall consistency.",
			focusAreas,
		),
		RecommendedCourses: courseLines,
	}
}

// buildRecommendationEntries converts scored recommendations into the
// user-facing course list. The same entries accompany both generated and
// fallback summaries.
func buildRecommendationEntries(recs []model.CourseRecommendation) []model.RecommendationEntry {
	entries := make([]model.RecommendationEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, model.RecommendationEntry{
			CourseID:         rec.Course.ID,
			CourseTitle:      rec.Course.Title,
			TargetWeaknessID: rec.WeaknessID,
			Explanation:      rec.Reason,
		})
	}
	return entries
}
