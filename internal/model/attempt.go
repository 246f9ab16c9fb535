package model

import "time"

// AttemptRecord is one graded test attempt as stored in the exam-result
// tables.
type AttemptRecord struct {
	ID              string    `json:"id"`
	ExamContentID   string    `json:"examContentId"`
	UserID          string    `json:"userId"`
	AttemptNumber   int       `json:"attemptNumber"`
	TotalAttempts   int       `json:"totalAttempts"`
	DurationTakenMs int64     `json:"durationTakenMs"`
	EarnedScore     float64   `json:"earnedScore"`
	TotalScore      float64   `json:"totalScore"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TestContext is the stage-1 payload: the current attempt plus at most one
// prior attempt for the same test.
type TestContext struct {
	TestID         string         `json:"testId"`
	StudentID      string         `json:"studentId"`
	CurrentAttempt *AttemptRecord `json:"currentTestResult"`
	HistoryAttempt *AttemptRecord `json:"historyTestResult,omitempty"`
	Notes          []string       `json:"notes,omitempty"`
}

// IncorrectQuestion is one question the student answered incorrectly on the
// current attempt, joined with the question bank and answer key.
type IncorrectQuestion struct {
	QuestionID           int      `json:"questionId"`
	TestResultQuestionID string   `json:"testResultQuestionId"`
	QuestionText         string   `json:"questionText"`
	Explanation          string   `json:"explanation,omitempty"`
	StudentAnswers       []string `json:"studentAnswers"`
	CorrectAnswers       []string `json:"correctAnswers"`
	AllAnswers           []string `json:"allAnswers"`
	Difficulty           string   `json:"difficulty,omitempty"`
	Score                float64  `json:"score"`
}

// DomainBreakdown holds accuracy for one question domain within an attempt.
type DomainBreakdown struct {
	Domain    string  `json:"domain"`
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Accuracy  float64 `json:"accuracy"`
}

// DomainPerformance aggregates per-domain accuracy for one attempt.
type DomainPerformance struct {
	Domains []DomainBreakdown `json:"domains"`
	Overall DomainBreakdown   `json:"overall"`
}

// IncorrectItemsReport is the stage-2 payload.
type IncorrectItemsReport struct {
	TestResultID            string              `json:"testResultId"`
	TotalQuestions          int                 `json:"totalQuestionsInTest"`
	TotalIncorrectQuestions int                 `json:"totalIncorrectQuestions"`
	IncorrectQuestions      []IncorrectQuestion `json:"incorrectQuestions"`
	CurrentPerformance      *DomainPerformance  `json:"currentDomainPerformance,omitempty"`
	HistoryPerformance      *DomainPerformance  `json:"historyDomainPerformance,omitempty"`
}
