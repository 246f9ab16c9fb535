package model

import "time"

// TelemetryRecord captures token counts and runtime for a single
// external-model invocation. Records are append-only; one is written per
// invocation of a generative stage, success or failure.
type TelemetryRecord struct {
	Stage          int       `json:"stage"`
	Usage          string    `json:"usage"`
	InputTokens    int64     `json:"inputTokens"`
	OutputTokens   int64     `json:"outputTokens"`
	RuntimeSeconds float64   `json:"runtimeSeconds"`
	Timestamp      time.Time `json:"timestamp"`
}
