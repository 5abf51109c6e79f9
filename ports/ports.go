// Package ports defines the seams between the analysis pipeline and its
// statistical adapters. Implementations must be pure: no retained state
// between calls, no mutation of inputs.
package ports

import (
	"context"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
)

// FrameReader loads the tabular source into a prepared panel frame.
// Rows with a missing value in any referenced column are dropped whole.
type FrameReader interface {
	Read() (*panel.Frame, error)
}

// ModelFitter fits one specification against a frame.
type ModelFitter interface {
	Fit(frame *panel.Frame, spec econ.Spec) (*econ.FitResult, error)
}

// SpecificationTester compares fixed against random effects estimates.
type SpecificationTester interface {
	Hausman(fixed, random *econ.FitResult, alpha float64) (econ.HausmanDecision, error)
}

// ResidualDiagnostics runs the heteroscedasticity, serial-correlation and
// cross-sectional-dependence tests against a fitted model.
type ResidualDiagnostics interface {
	Run(ctx context.Context, frame *panel.Frame, fit *econ.FitResult, alpha float64) ([]econ.TestResult, error)
}

// RobustEstimator recomputes coefficient inference under a robust
// covariance estimator. maxLags <= 0 selects a data-driven bandwidth.
type RobustEstimator interface {
	Table(fit *econ.FitResult, maxLags int) (econ.CoefficientTable, error)
}

// CovariateSelector performs stepwise covariate selection on an
// entity-indicator regression equivalent to fixed effects.
type CovariateSelector interface {
	Select(frame *panel.Frame, outcome string, covariates []string) (econ.Selection, error)
}

// ResultExporter persists a run report to external tables.
type ResultExporter interface {
	Export(report *econ.RunReport) error
}
