package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/pkg/generative"
)

const summarySystemPrompt = `You are generating a concise JSON report for a student or professional
based on their weaknesses and recommended courses.

DOMAIN INFERENCE RULE:
- You MAY infer the domain only if the weaknesses, course titles, or metadata
  clearly indicate one. Otherwise stay domain-neutral.

DO NOT create fictional exams, fake metrics, or imaginary organizations.
Use only information from the weaknesses and course list.

REQUIRED OUTPUT FORMAT (JSON ONLY, no code fences, no commentary):
{
  "current_performance": "<one short paragraph summarizing current ability>",
  "area_to_be_improved": "<one short paragraph describing the key skills that need focus>",
  "recommended_courses": [
    "<explanation referencing one of the provided courses>",
    "..."
  ]
}

TONE: supportive and encouraging; each section 2-4 sentences; smooth
narrative paragraphs. The recommended_courses array must describe each
provided course and how it supports the weaknesses. Do not invent new
courses or change their titles.`

// llmSummarizer implements Summarizer on the generative model.
type llmSummarizer struct {
	client generative.Client
}

// NewSummarizer creates the stage-5 collaborator.
func NewSummarizer(client generative.Client) Summarizer {
	return &llmSummarizer{client: client}
}

func (s *llmSummarizer) Summarize(ctx context.Context, weaknesses []model.Weakness, recs []model.CourseRecommendation) (model.Summary, generative.Usage, error) {
	resp, err := s.client.Complete(ctx, generative.Request{
		System: summarySystemPrompt,
		Prompt: buildSummaryPrompt(weaknesses, recs),
	})
	if err != nil {
		return model.Summary{}, generative.Usage{}, eris.Wrap(err, "summary generation: model call")
	}

	text := stripCodeFences(resp.Text)
	if text == "" {
		return model.Summary{}, resp.Usage, eris.New("summary generation: empty response")
	}

	var raw struct {
		CurrentPerformance string   `json:"current_performance"`
		AreaToImprove      string   `json:"area_to_be_improved"`
		RecommendedCourses []string `json:"recommended_courses"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return model.Summary{}, resp.Usage, eris.Wrap(err, "summary generation: parse response")
	}
	if raw.CurrentPerformance == "" && raw.AreaToImprove == "" {
		return model.Summary{}, resp.Usage, eris.New("summary generation: response missing required fields")
	}

	return model.Summary{
		CurrentPerformance: raw.CurrentPerformance,
		AreaToImprove:      raw.AreaToImprove,
		RecommendedCourses: raw.RecommendedCourses,
	}, resp.Usage, nil
}

func buildSummaryPrompt(weaknesses []model.Weakness, recs []model.CourseRecommendation) string {
	var b strings.Builder

	b.WriteString("Weaknesses identified:\n")
	for _, w := range weaknesses {
		fmt.Fprintf(&b, "- (%s) %s (importance=%.2f)\n", w.ID, w.Text, w.Importance)
	}

	b.WriteString("\nSelected recommended courses (do NOT change this list):\n")
	for _, rec := range recs {
		fmt.Fprintf(&b, "- %s (id=%s) helps weakness %s\n", rec.Course.Title, rec.Course.ID, rec.WeaknessID)
	}

	return b.String()
}
