package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/internal/resilience"
	"github.com/piloturl/test-analysis/pkg/generative"
)

const weaknessSystemPrompt = `You are a diagnostic engine for assessment tests across many domains
(e.g., language exams, aptitude tests, professional certifications).
You receive a JSON array of questions where the student answered incorrectly.

Task:
1. Look across ALL incorrect questions for this single student and test.
2. Find concrete, reusable weaknesses and error patterns (not just "Grammar" or "Math").
3. Group evidence questions that share the same weakness or pattern.

Output format (JSON ONLY, no extra text):

[
  {
    "weakness": "short name (1 sentence max, specific to the pattern)",
    "pattern_type": "language | numeracy | logical_reasoning | reading_comprehension | domain_knowledge | test_strategy | other",
    "description": "2-4 sentences explaining the pattern and why errors happen.",
    "evidence_question_ids": [<questionId>, ...],
    "frequency": <number of questions that show this pattern>
  }
]

Respond with ONLY the JSON array as described above.`

// llmWeaknessExtractor implements WeaknessExtractor on the generative model.
type llmWeaknessExtractor struct {
	client generative.Client
}

// NewWeaknessExtractor creates the stage-3 collaborator.
func NewWeaknessExtractor(client generative.Client) WeaknessExtractor {
	return &llmWeaknessExtractor{client: client}
}

func (x *llmWeaknessExtractor) Extract(ctx context.Context, items []model.IncorrectQuestion) ([]model.Weakness, generative.Usage, error) {
	if len(items) == 0 {
		return nil, generative.Usage{}, nil
	}

	casesJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, generative.Usage{}, eris.Wrap(err, "weakness extraction: marshal cases")
	}

	resp, err := x.client.Complete(ctx, generative.Request{
		System: weaknessSystemPrompt,
		Prompt: "Here is the JSON array of incorrect questions:\n\n" + string(casesJSON),
	})
	if err != nil {
		return nil, generative.Usage{}, resilience.NewUnavailableError(
			eris.Wrap(err, "weakness extraction: model call"), 0)
	}

	raw := parseRawWeaknesses(stripCodeFences(resp.Text))

	weaknesses := make([]model.Weakness, 0, len(raw))
	for _, rw := range raw {
		if strings.TrimSpace(rw.Weakness) == "" {
			continue
		}
		w := model.Weakness{
			ID:                  uuid.New().String(),
			Text:                rw.Weakness,
			Description:         rw.Description,
			PatternType:         rw.PatternType,
			EvidenceQuestionIDs: rw.EvidenceQuestionIDs,
			Frequency:           rw.Frequency,
			Importance:          rw.Importance,
		}
		if w.Importance <= 0 || w.Importance > 1 {
			w.Importance = 1.0
		}
		if w.Frequency <= 0 {
			w.Frequency = len(w.EvidenceQuestionIDs)
		}
		weaknesses = append(weaknesses, w)
	}

	return weaknesses, resp.Usage, nil
}

// rawWeakness is the model's output schema for one weakness.
type rawWeakness struct {
	Weakness            string  `json:"weakness"`
	PatternType         string  `json:"pattern_type"`
	Description         string  `json:"description"`
	EvidenceQuestionIDs []int   `json:"evidence_question_ids"`
	Frequency           int     `json:"frequency"`
	Importance          float64 `json:"importance"`
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// around its JSON output.
func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// parseRawWeaknesses parses model output into weakness records: strict JSON
// first (array or single object), then a field-scavenging fallback for
// messy text.
func parseRawWeaknesses(text string) []rawWeakness {
	var list []rawWeakness
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list
	}

	var single rawWeakness
	if err := json.Unmarshal([]byte(text), &single); err == nil && single.Weakness != "" {
		return []rawWeakness{single}
	}

	zap.L().Debug("weakness extraction: strict JSON parse failed, using field salvage")
	return salvageWeakness(text)
}

var (
	weaknessFieldRe    = regexp.MustCompile(`(?i)"?weakness"?\s*[:=-]\s*['"]?(.+?)['"]?(?:\n|,\s*"|$)`)
	patternTypeFieldRe = regexp.MustCompile(`(?i)"?pattern_type"?\s*[:=-]\s*['"]?(.+?)['"]?(?:\n|,\s*"|$)`)
	descriptionFieldRe = regexp.MustCompile(`(?is)"?description"?\s*[:=-]\s*['"]?(.+)`)
	evidenceFieldRe    = regexp.MustCompile(`(?is)"?evidence_question_ids"?\s*[:=-]\s*\[([^\]]*)\]`)
	frequencyFieldRe   = regexp.MustCompile(`(?i)"?frequency"?\s*[:=-]\s*(\d+)`)
	fieldLabelRe       = regexp.MustCompile(`(?i)\b(evidence_question_ids|frequency|weakness|pattern_type)\b\s*[:=-]`)
	digitsRe           = regexp.MustCompile(`\d+`)
)

// salvageWeakness extracts known fields from free-form model output. It
// returns at most one weakness; an empty result means nothing usable was
// found.
func salvageWeakness(text string) []rawWeakness {
	var rw rawWeakness

	if m := weaknessFieldRe.FindStringSubmatch(text); m != nil {
		rw.Weakness = strings.TrimSpace(m[1])
	}
	if m := patternTypeFieldRe.FindStringSubmatch(text); m != nil {
		rw.PatternType = strings.TrimSpace(m[1])
	}
	if m := descriptionFieldRe.FindStringSubmatch(text); m != nil {
		desc := m[1]
		// Cut off at the next recognized field label.
		if loc := fieldLabelRe.FindStringIndex(desc); loc != nil {
			desc = desc[:loc[0]]
		}
		rw.Description = strings.Join(strings.Fields(desc), " ")
	}
	if m := evidenceFieldRe.FindStringSubmatch(text); m != nil {
		for _, numStr := range digitsRe.FindAllString(m[1], -1) {
			if n, err := strconv.Atoi(numStr); err == nil {
				rw.EvidenceQuestionIDs = append(rw.EvidenceQuestionIDs, n)
			}
		}
	}
	if m := frequencyFieldRe.FindStringSubmatch(text); m != nil {
		rw.Frequency, _ = strconv.Atoi(m[1])
	}

	if rw.Weakness == "" && rw.Description == "" && len(rw.EvidenceQuestionIDs) == 0 {
		return nil
	}
	if rw.Weakness == "" {
		rw.Weakness = fmt.Sprintf("Recurring error pattern (%d evidence questions)", len(rw.EvidenceQuestionIDs))
	}
	return []rawWeakness{rw}
}
