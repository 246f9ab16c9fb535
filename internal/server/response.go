package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/piloturl/test-analysis/internal/model"
)

// analysisResponse is the success envelope for the recommendation endpoint.
type analysisResponse struct {
	Status             string                       `json:"status"`
	Weaknesses         []model.Weakness             `json:"weaknesses"`
	Recommendations    []model.CourseRecommendation `json:"courseRecommendations"`
	UserFacingResponse *model.UserFacingResponse    `json:"userFacingResponse,omitempty"`
	AgentOutputs       model.AgentOutputs           `json:"agentOutputs"`
	Metadata           responseMetadata             `json:"metadata"`
}

type responseMetadata struct {
	CorrelationID string            `json:"correlationId"`
	APIVersion    string            `json:"apiVersion"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	Tokens        model.TokenTotals `json:"tokens"`
}

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Code          string    `json:"code"`
	Message       string    `json:"message"`
	SubErrors     []string  `json:"subErrors"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlationId"`
}

func writeAnalysis(w http.ResponseWriter, r *http.Request, result *model.AnalysisResult) {
	weaknesses := result.Weaknesses
	if weaknesses == nil {
		weaknesses = []model.Weakness{}
	}
	recs := result.Recommendations
	if recs == nil {
		recs = []model.CourseRecommendation{}
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		Status:             result.Status,
		Weaknesses:         weaknesses,
		Recommendations:    recs,
		UserFacingResponse: result.UserFacing,
		AgentOutputs:       result.AgentOutputs,
		Metadata: responseMetadata{
			CorrelationID: correlationIDFrom(r.Context()),
			APIVersion:    apiVersionOf(r),
			GeneratedAt:   result.GeneratedAt,
			Tokens:        result.Tokens,
		},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, desc model.ErrorDescriptor, subErrors []string) {
	if subErrors == nil {
		subErrors = []string{}
	}
	writeJSON(w, desc.HTTPStatus, errorResponse{
		Code:          string(desc.Kind),
		Message:       desc.Message,
		SubErrors:     subErrors,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}
