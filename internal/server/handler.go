package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/piloturl/test-analysis/internal/model"
	"github.com/piloturl/test-analysis/internal/pipeline"
)

// analysisRequest accepts both snake_case and camelCase keys for every
// field. Pointer fields distinguish absent from zero.
type analysisRequest struct {
	TestID          string `json:"test_id"`
	TestIDCamel     string `json:"testId"`
	StudentID       string `json:"student_id"`
	StudentIDCamel  string `json:"studentId"`
	MaxCourses      *int   `json:"max_courses"`
	MaxCoursesCamel *int   `json:"maxCourses"`
}

func (a analysisRequest) normalize(correlationID string) model.PipelineRequest {
	req := model.PipelineRequest{
		TestID:        firstNonEmpty(a.TestID, a.TestIDCamel),
		StudentID:     firstNonEmpty(a.StudentID, a.StudentIDCamel),
		MaxCourses:    model.DefaultCoursesPerRequest,
		CorrelationID: correlationID,
	}
	if a.MaxCourses != nil {
		req.MaxCourses = *a.MaxCourses
	} else if a.MaxCoursesCamel != nil {
		req.MaxCourses = *a.MaxCoursesCamel
	}
	return req
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		writeError(w, r, model.ErrorDescriptor{
			Kind:       model.ErrValidationFailed,
			Message:    "Content-Type must be application/json",
			HTTPStatus: http.StatusBadRequest,
		}, nil)
		return
	}

	var body analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, model.ErrorDescriptor{
			Kind:       model.ErrValidationFailed,
			Message:    "malformed JSON request body",
			HTTPStatus: http.StatusBadRequest,
		}, nil)
		return
	}

	req := body.normalize(correlationIDFrom(r.Context()))

	result, err := s.orch.Run(r.Context(), req)
	if err != nil {
		desc := pipeline.Classify(err)
		zap.L().Warn("server: analysis failed",
			zap.String("correlation_id", req.CorrelationID),
			zap.String("code", string(desc.Kind)),
			zap.Error(err),
		)

		var vErr *model.ValidationError
		var subErrors []string
		if errors.As(err, &vErr) {
			subErrors = vErr.Fields
		}
		writeError(w, r, desc, subErrors)
		return
	}

	writeAnalysis(w, r, result)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
