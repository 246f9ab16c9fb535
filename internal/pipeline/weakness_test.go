package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/internal/resilience"
	"github.com/piloturl/test-analysis/pkg/generative"
)

func incorrectItems() []model.IncorrectQuestion {
	return []model.IncorrectQuestion{
		{QuestionID: 11, QuestionText: "Choose the correct passive form", StudentAnswers: []string{"was ate"}, CorrectAnswers: []string{"was eaten"}},
		{QuestionID: 12, QuestionText: "Identify the negated clause", StudentAnswers: []string{"A"}, CorrectAnswers: []string{"B"}},
	}
}

func TestWeaknessExtractor_ParsesFencedJSONArray(t *testing.T) {
	client := &mockGenerativeClient{}
	client.On("Complete", mock.Anything, mock.AnythingOfType("generative.Request")).Return(&generative.Response{
		Text: "```json\n[{\"weakness\": \"Passive voice confusion\", \"pattern_type\": \"language\", \"description\": \"Mixes auxiliary and participle forms.\", \"evidence_question_ids\": [11], \"frequency\": 1}]\n```",
		Usage: generative.Usage{InputTokens: 120, OutputTokens: 40},
	}, nil)

	x := NewWeaknessExtractor(client)
	ws, usage, err := x.Extract(context.Background(), incorrectItems())

	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "Passive voice confusion", ws[0].Text)
	assert.Equal(t, "language", ws[0].PatternType)
	assert.Equal(t, []int{11}, ws[0].EvidenceQuestionIDs)
	assert.Equal(t, 1, ws[0].Frequency)
	assert.NotEmpty(t, ws[0].ID)
	assert.Equal(t, 1.0, ws[0].Importance)
	assert.Equal(t, int64(120), usage.InputTokens)
	assert.Equal(t, int64(40), usage.OutputTokens)
}

func TestWeaknessExtractor_ParsesSingleObject(t *testing.T) {
	client := &mockGenerativeClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(&generative.Response{
		Text: `{"weakness": "Negation misreads", "evidence_question_ids": [11, 12]}`,
	}, nil)

	x := NewWeaknessExtractor(client)
	ws, _, err := x.Extract(context.Background(), incorrectItems())

	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "Negation misreads", ws[0].Text)
	// Frequency defaults to the evidence count when the model omits it.
	assert.Equal(t, 2, ws[0].Frequency)
}

func TestWeaknessExtractor_SalvagesMessyOutput(t *testing.T) {
	client := &mockGenerativeClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(&generative.Response{
		Text: "Sure! Here is my analysis.\n" +
			"weakness: Misapplies order of operations\n" +
			"pattern_type: numeracy\n" +
			"evidence_question_ids: [11, 12]\n" +
			"frequency: 2\n",
	}, nil)

	x := NewWeaknessExtractor(client)
	ws, _, err := x.Extract(context.Background(), incorrectItems())

	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "Misapplies order of operations", ws[0].Text)
	assert.Equal(t, "numeracy", ws[0].PatternType)
	assert.Equal(t, []int{11, 12}, ws[0].EvidenceQuestionIDs)
	assert.Equal(t, 2, ws[0].Frequency)
}

func TestWeaknessExtractor_UnusableOutputYieldsNoWeaknesses(t *testing.T) {
	client := &mockGenerativeClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(&generative.Response{
		Text: "I could not find any patterns worth reporting.",
	}, nil)

	x := NewWeaknessExtractor(client)
	ws, _, err := x.Extract(context.Background(), incorrectItems())

	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestWeaknessExtractor_EmptyInputSkipsModelCall(t *testing.T) {
	client := &mockGenerativeClient{}

	x := NewWeaknessExtractor(client)
	ws, usage, err := x.Extract(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, ws)
	assert.Zero(t, usage.InputTokens)
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestWeaknessExtractor_ModelFailureIsUnavailable(t *testing.T) {
	client := &mockGenerativeClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("api error"))

	x := NewWeaknessExtractor(client)
	_, _, err := x.Extract(context.Background(), incorrectItems())

	require.Error(t, err)
	assert.True(t, resilience.IsUnavailable(err))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, stripCodeFences("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[{"a":1}]`, stripCodeFences("```\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[{"a":1}]`, stripCodeFences(`[{"a":1}]`))
}
