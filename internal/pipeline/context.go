package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/internal/store"
)

// storeContextLookup implements ContextLookup against the exam-result store.
type storeContextLookup struct {
	store store.Store
}

// NewContextLookup creates the stage-1 collaborator.
func NewContextLookup(st store.Store) ContextLookup {
	return &storeContextLookup{store: st}
}

func (l *storeContextLookup) Lookup(ctx context.Context, testID, studentID string) (*model.TestContext, error) {
	attempts, err := l.store.AttemptHistory(ctx, testID, studentID)
	if err != nil {
		return nil, eris.Wrap(err, "context lookup: attempt history")
	}

	if len(attempts) == 0 {
		hasAny, err := l.store.StudentHasAttempts(ctx, studentID)
		if err != nil {
			return nil, eris.Wrap(err, "context lookup: student attempts")
		}
		if hasAny {
			return nil, eris.Wrap(ErrNotFound, "student has test history, but none for this test")
		}
		return nil, eris.Wrap(ErrNotFound, "student has not taken any tests")
	}

	tc := &model.TestContext{
		TestID:         testID,
		StudentID:      studentID,
		CurrentAttempt: &attempts[0],
	}
	if len(attempts) > 1 {
		tc.HistoryAttempt = &attempts[1]
	} else {
		tc.Notes = append(tc.Notes, "no previous attempts for this test (first time taking it)")
	}
	return tc, nil
}
