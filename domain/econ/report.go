package econ

import (
	"sanepanel/domain/core"
)

// VariableSummary holds the exploration-block statistics for one column.
type VariableSummary struct {
	Name   string
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	Max    float64
}

// Exploration is the pre-modeling data profile: per-variable summaries and
// the outcome/covariate correlation matrix.
type Exploration struct {
	Summaries []VariableSummary
	// CorrOrder fixes the row/column order of Corr.
	CorrOrder []string
	Corr      [][]float64
}

// OutcomeAnalysis bundles every result the pipeline produces for one outcome
// variable. One instance per outcome; the two outcomes never share state.
type OutcomeAnalysis struct {
	Outcome string

	Pooled *FitResult
	Fixed  *FitResult
	Random *FitResult

	Hausman     HausmanDecision
	Diagnostics []TestResult

	RobustFull CoefficientTable

	Selection      Selection
	ReducedFixed   *FitResult
	RobustReduced  CoefficientTable
	FinalEffect    EffectType
	HausmanApplied bool
}

// RunManifest captures audit metadata for one pipeline execution.
type RunManifest struct {
	RunID        core.RunID
	StartedAt    core.Timestamp
	RuntimeMs    int64
	Observations int
	Entities     int
	Periods      int
	Outcomes     []string
	Failures     map[string]string
}

// RunReport is the complete deliverable of one run.
type RunReport struct {
	Manifest    RunManifest
	Exploration Exploration
	Outcomes    []OutcomeAnalysis
}
