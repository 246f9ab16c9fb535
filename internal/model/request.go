package model

import (
	"fmt"
	"strings"
)

// MaxCourses bounds for a single analysis request.
const (
	MinCoursesPerRequest     = 1
	MaxCoursesPerRequest     = 10
	DefaultCoursesPerRequest = 5
)

// PipelineRequest is a validated, normalized analysis request. It is
// immutable once admitted by the gate.
type PipelineRequest struct {
	TestID        string `json:"testId"`
	StudentID     string `json:"studentId"`
	MaxCourses    int    `json:"maxCourses"`
	CorrelationID string `json:"correlationId"`
}

// ValidationError describes one or more request-level validation failures.
// It is raised before any pipeline stage executes.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request validation failed: %s", strings.Join(e.Fields, "; "))
}

// Validate checks required fields and the max_courses bounds.
func (r PipelineRequest) Validate() error {
	var fields []string
	if strings.TrimSpace(r.TestID) == "" {
		fields = append(fields, "test_id is required")
	}
	if strings.TrimSpace(r.StudentID) == "" {
		fields = append(fields, "student_id is required")
	}
	if r.MaxCourses < MinCoursesPerRequest || r.MaxCourses > MaxCoursesPerRequest {
		fields = append(fields, fmt.Sprintf("max_courses must be between %d and %d", MinCoursesPerRequest, MaxCoursesPerRequest))
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
