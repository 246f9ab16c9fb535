package pipeline

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/pkg/vectorsearch"
)

// vectorCourseMatcher implements CourseMatcher over the course vector index.
type vectorCourseMatcher struct {
	client      vectorsearch.Client
	maxTotal    int
	concurrency int
}

// NewCourseMatcher creates the stage-4 collaborator. maxTotal caps the
// number of recommendations across all weaknesses; concurrency bounds the
// per-weakness query fan-out.
func NewCourseMatcher(client vectorsearch.Client, maxTotal, concurrency int) CourseMatcher {
	if maxTotal <= 0 {
		maxTotal = 5
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &vectorCourseMatcher{client: client, maxTotal: maxTotal, concurrency: concurrency}
}

func (m *vectorCourseMatcher) Match(ctx context.Context, weaknesses []model.Weakness, maxCourses int) ([]model.CourseRecommendation, error) {
	if len(weaknesses) == 0 {
		return nil, nil
	}
	if maxCourses <= 0 || maxCourses > m.maxTotal {
		maxCourses = m.maxTotal
	}

	// One query per weakness, fanned out with bounded parallelism. Results
	// are collected per weakness index so the flattened order is stable
	// regardless of completion order.
	perWeakness := make([][]model.CourseRecommendation, len(weaknesses))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for i, w := range weaknesses {
		g.Go(func() error {
			neighbors, err := m.client.Query(gCtx, w.Text, maxCourses)
			if err != nil {
				return eris.Wrapf(err, "course matching: query weakness %s", w.ID)
			}
			recs := make([]model.CourseRecommendation, 0, len(neighbors))
			for _, n := range neighbors {
				recs = append(recs, neighborToRecommendation(n, w))
			}
			perWeakness[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.CourseRecommendation
	for _, recs := range perWeakness {
		all = append(all, recs...)
	}

	return selectFinalCourses(all, maxCourses), nil
}

func neighborToRecommendation(n vectorsearch.Neighbor, w model.Weakness) model.CourseRecommendation {
	title := n.Metadata["lesson_title"]
	if title == "" {
		title = n.Metadata["title"]
	}
	if title == "" {
		title = "Untitled course"
	}
	link := n.Metadata["link"]
	if link == "" {
		link = n.Metadata["course_url"]
	}

	text := truncateRunes(w.Text, 80)

	return model.CourseRecommendation{
		WeaknessID: w.ID,
		Score:      1 / (1 + n.Distance),
		Course: model.CourseRef{
			ID:          n.ID,
			Title:       title,
			Description: n.Metadata["description"],
			Link:        link,
		},
		Reason: fmt.Sprintf("Retrieved by semantic match to weakness '%s'.", text),
	}
}

// truncateRunes shortens s to at most n runes without splitting a multibyte
// sequence.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// selectFinalCourses picks at most maxTotal recommendations: the best course
// per weakness first, then remaining slots filled by global score order.
// Courses never repeat.
func selectFinalCourses(all []model.CourseRecommendation, maxTotal int) []model.CourseRecommendation {
	if len(all) == 0 {
		return nil
	}

	bestIdx := make(map[string]int)
	var weaknessOrder []string
	for i, rec := range all {
		cur, ok := bestIdx[rec.WeaknessID]
		if !ok {
			bestIdx[rec.WeaknessID] = i
			weaknessOrder = append(weaknessOrder, rec.WeaknessID)
			continue
		}
		if rec.Score > all[cur].Score {
			bestIdx[rec.WeaknessID] = i
		}
	}

	var selected []model.CourseRecommendation
	for _, wid := range weaknessOrder {
		selected = append(selected, all[bestIdx[wid]])
	}
	selected = dedupeByCourse(selected)
	sortByScore(selected)

	if len(selected) >= maxTotal {
		return selected[:maxTotal]
	}

	chosen := make(map[string]struct{}, len(selected))
	for _, rec := range selected {
		chosen[rec.Course.ID] = struct{}{}
	}
	var remaining []model.CourseRecommendation
	for _, rec := range all {
		if _, ok := chosen[rec.Course.ID]; ok {
			continue
		}
		remaining = append(remaining, rec)
	}
	remaining = dedupeByCourse(remaining)
	sortByScore(remaining)

	slots := maxTotal - len(selected)
	if slots > len(remaining) {
		slots = len(remaining)
	}
	return append(selected, remaining[:slots]...)
}

func dedupeByCourse(recs []model.CourseRecommendation) []model.CourseRecommendation {
	seen := make(map[string]struct{}, len(recs))
	unique := recs[:0:0]
	for _, rec := range recs {
		if _, ok := seen[rec.Course.ID]; ok {
			continue
		}
		seen[rec.Course.ID] = struct{}{}
		unique = append(unique, rec)
	}
	return unique
}

// sortByScore orders by descending score with course id as a deterministic
// tie-break.
func sortByScore(recs []model.CourseRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Course.ID < recs[j].Course.ID
	})
}
