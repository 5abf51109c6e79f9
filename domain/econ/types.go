package econ

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"sanepanel/domain/panel"
)

// EffectType selects how entity heterogeneity enters the estimator.
type EffectType string

const (
	// EffectPooled is ordinary least squares ignoring the panel structure.
	// Baseline for comparison only, never used for final inference.
	EffectPooled EffectType = "pooled"
	// EffectFixed is the within estimator: entity-demeaned OLS.
	EffectFixed EffectType = "fixed"
	// EffectRandom is Swamy-Arora quasi-demeaned GLS.
	EffectRandom EffectType = "random"
)

// Spec fully identifies one model: outcome, covariates and effect structure.
type Spec struct {
	Outcome    string
	Covariates []string
	Effect     EffectType
}

func (s Spec) String() string {
	return fmt.Sprintf("%s ~ %d covariates (%s effects)", s.Outcome, len(s.Covariates), s.Effect)
}

// SameDesign reports whether two specs share outcome and covariate set,
// the precondition for comparing their estimates.
func (s Spec) SameDesign(other Spec) bool {
	if s.Outcome != other.Outcome || len(s.Covariates) != len(other.Covariates) {
		return false
	}
	for i, c := range s.Covariates {
		if other.Covariates[i] != c {
			return false
		}
	}
	return true
}

// Coefficient is one row of an inference table.
type Coefficient struct {
	Term     panel.Term
	Estimate float64
	StdErr   float64
	TStat    float64
	PValue   float64
}

// FitResult is the opaque outcome of one model fit: bound to one spec and
// one frame, immutable after creation. It carries everything the downstream
// tests and robust inference need, on the transformed (estimation) scale.
type FitResult struct {
	Spec        Spec
	N           int
	NumEntities int
	NumPeriods  int

	Terms  []panel.Term
	Coeffs []Coefficient

	// Design is the transformed design matrix actually used (within- or
	// quasi-demeaned), columns in Terms order.
	Design    *mat.Dense
	Residuals []float64
	Fitted    []float64

	RowEntities []panel.EntityID
	RowYears    []int

	RSS    float64
	R2     float64
	Sigma2 float64
	DF     int

	// Cov is the conventional (non-robust) coefficient covariance.
	Cov *mat.SymDense
}

// Coefficient returns the fitted coefficient for a term name.
func (f *FitResult) Coefficient(name string) (Coefficient, bool) {
	for _, c := range f.Coeffs {
		if c.Term.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// CovariateCoeffs returns only substantive covariate rows, in design order.
func (f *FitResult) CovariateCoeffs() []Coefficient {
	out := make([]Coefficient, 0, len(f.Coeffs))
	for _, c := range f.Coeffs {
		if c.Term.Kind == panel.TermCovariate {
			out = append(out, c)
		}
	}
	return out
}

// TestResult is a statistic + p-value pair from a specification or
// diagnostic test. Read-only; interpretation is left to the caller.
type TestResult struct {
	Name      string
	Statistic float64
	DF        int
	PValue    float64
	Alpha     float64
	Rejected  bool
	Detail    string
}

func (t TestResult) String() string {
	return fmt.Sprintf("%s: stat=%.4f df=%d p=%.4g", t.Name, t.Statistic, t.DF, t.PValue)
}

// HausmanDecision pairs the Hausman test with an explicit, inspectable
// recommendation. The pipeline reports it; whether it is applied to the
// final model is the caller's choice, never implied.
type HausmanDecision struct {
	Result     TestResult
	Recommends EffectType
}

// CoefficientTable is the authoritative inference output for one model under
// a given covariance estimator.
type CoefficientTable struct {
	Spec   Spec
	Kernel string
	Lags   int
	Rows   []Coefficient
}

// Row returns the table row for a term name.
func (t CoefficientTable) Row(name string) (Coefficient, bool) {
	for _, r := range t.Rows {
		if r.Term.Name == name {
			return r, true
		}
	}
	return Coefficient{}, false
}

// SelectionStep records one accepted move of the stepwise search.
type SelectionStep struct {
	Action string // "add" or "drop"
	Term   panel.Term
	AIC    float64
}

// Selection is the outcome of stepwise covariate selection.
type Selection struct {
	Outcome    string
	Covariates []string // reduced substantive set, original order
	FinalAIC   float64
	Trail      []SelectionStep
}
