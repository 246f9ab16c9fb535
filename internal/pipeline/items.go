package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/internal/store"
)

// storeItemExtractor implements ItemExtractor against the exam-result store.
type storeItemExtractor struct {
	store store.Store
}

// NewItemExtractor creates the stage-2 collaborator.
func NewItemExtractor(st store.Store) ItemExtractor {
	return &storeItemExtractor{store: st}
}

func (e *storeItemExtractor) IncorrectItems(ctx context.Context, tc *model.TestContext) (*model.IncorrectItemsReport, error) {
	current := tc.CurrentAttempt

	total, err := e.store.QuestionCount(ctx, current.ID)
	if err != nil {
		return nil, eris.Wrap(err, "item extraction: question count")
	}

	items, err := e.store.IncorrectQuestions(ctx, current.ID)
	if err != nil {
		return nil, eris.Wrap(err, "item extraction: incorrect questions")
	}

	report := &model.IncorrectItemsReport{
		TestResultID:            current.ID,
		TotalQuestions:          total,
		TotalIncorrectQuestions: len(items),
		IncorrectQuestions:      items,
	}

	report.CurrentPerformance, err = e.store.DomainPerformance(ctx, current.ID)
	if err != nil {
		return nil, eris.Wrap(err, "item extraction: current domain performance")
	}

	if tc.HistoryAttempt != nil {
		report.HistoryPerformance, err = e.store.DomainPerformance(ctx, tc.HistoryAttempt.ID)
		if err != nil {
			// History is advisory only; a failure here should not abort the run.
			zap.L().Warn("item extraction: history domain performance failed",
				zap.String("exam_result_id", tc.HistoryAttempt.ID),
				zap.Error(err),
			)
			report.HistoryPerformance = nil
		}
	}

	return report, nil
}
