// Package entity defines the pipeline run summary.
package entity

import "time"

// Status is the overall outcome of a run.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageFailed   StageStatus = "failed"
	StageSkipped  StageStatus = "skipped"
	StageDisabled StageStatus = "disabled"
)

// Stage names in execution order.
const (
	StageFetch                   = "fetch"
	StageValidate                = "validate"
	StageTransform               = "transform"
	StageLoadInstruments         = "load_instruments"
	StageLoadPrices              = "load_prices"
	StageComputeIndicators       = "compute_indicators"
	StageEvaluateAlerts          = "evaluate_alerts"
	StageGenerateRecommendations = "generate_recommendations"
	StageNotify                  = "notify"
)

// StageNames lists every stage in the order a run executes them.
var StageNames = []string{
	StageFetch,
	StageValidate,
	StageTransform,
	StageLoadInstruments,
	StageLoadPrices,
	StageComputeIndicators,
	StageEvaluateAlerts,
	StageGenerateRecommendations,
	StageNotify,
}

// StageReport is the record of one stage within a run.
type StageReport struct {
	Name     string         `json:"name"`
	Status   StageStatus    `json:"status"`
	Duration time.Duration  `json:"duration"`
	Counts   map[string]int `json:"counts,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID     string         `json:"run_id"`
	AsOf      time.Time      `json:"as_of"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Status    Status         `json:"status"`
	Stages    []StageReport  `json:"stages"`
	Counts    map[string]int `json:"counts"`
	Errors    []string       `json:"errors"`
	Warnings  []string       `json:"warnings"`
}

// Stage returns the report for name, or false when the run has none.
func (r RunResult) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}
