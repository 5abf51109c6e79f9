// Package fitter estimates pooled, fixed-effects (within) and random-effects
// (Swamy-Arora) panel regressions on gonum matrices.
package fitter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal/errors"
)

// Engine is a stateless panel model fitter. Each Fit call is a pure function
// of the frame and the specification.
type Engine struct{}

// NewEngine creates a panel fitting engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Fit estimates one specification. The returned result is immutable and owns
// everything downstream tests need: coefficients, residuals, fitted values
// and the transformed design.
func (e *Engine) Fit(frame *panel.Frame, spec econ.Spec) (*econ.FitResult, error) {
	if err := validateSpec(frame, spec); err != nil {
		return nil, err
	}

	switch spec.Effect {
	case econ.EffectPooled:
		return e.fitPooled(frame, spec)
	case econ.EffectFixed:
		return e.fitWithin(frame, spec)
	case econ.EffectRandom:
		return e.fitRandom(frame, spec)
	default:
		return nil, errors.InternalError(fmt.Sprintf("unknown effect type %q", spec.Effect))
	}
}

func validateSpec(frame *panel.Frame, spec econ.Spec) error {
	if !frame.HasColumn(spec.Outcome) {
		return errors.MalformedInput(fmt.Sprintf("outcome column %s is not part of the panel", spec.Outcome))
	}
	if len(spec.Covariates) == 0 {
		return errors.MalformedInput("specification has no covariates")
	}
	seen := make(map[string]bool, len(spec.Covariates))
	for _, c := range spec.Covariates {
		if !frame.HasColumn(c) {
			return errors.MalformedInput(fmt.Sprintf("covariate column %s is not part of the panel", c))
		}
		if c == spec.Outcome {
			return errors.MalformedInput(fmt.Sprintf("outcome %s cannot appear among covariates", c))
		}
		if seen[c] {
			return errors.MalformedInput(fmt.Sprintf("covariate %s listed twice", c))
		}
		seen[c] = true
	}
	return nil
}

// fitPooled runs OLS with an intercept, ignoring the panel structure.
func (e *Engine) fitPooled(frame *panel.Frame, spec econ.Spec) (*econ.FitResult, error) {
	y, err := frame.Vector(spec.Outcome)
	if err != nil {
		return nil, err
	}
	rows, err := frame.Matrix(spec.Covariates)
	if err != nil {
		return nil, err
	}

	n := frame.Len()
	k := len(spec.Covariates) + 1
	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, v := range rows[i] {
			X.Set(i, j+1, v)
		}
	}

	terms := make([]panel.Term, 0, k)
	terms = append(terms, panel.Intercept())
	for _, c := range spec.Covariates {
		terms = append(terms, panel.Covariate(c))
	}

	df := n - k
	return e.assemble(frame, spec, X, y, terms, df, totalSS(y))
}

// fitWithin demeans outcome and covariates within each entity and runs OLS
// with no intercept. Time-invariant covariates vanish under demeaning and
// are rejected as singular.
func (e *Engine) fitWithin(frame *panel.Frame, spec econ.Spec) (*econ.FitResult, error) {
	y, err := frame.Vector(spec.Outcome)
	if err != nil {
		return nil, err
	}
	rows, err := frame.Matrix(spec.Covariates)
	if err != nil {
		return nil, err
	}

	n := frame.Len()
	k := len(spec.Covariates)
	yW := make([]float64, n)
	X := mat.NewDense(n, k, nil)

	for _, entity := range frame.Entities() {
		idx := frame.EntityRows(entity)
		t := float64(len(idx))
		yMean := 0.0
		xMean := make([]float64, k)
		for _, i := range idx {
			yMean += y[i]
			for j := 0; j < k; j++ {
				xMean[j] += rows[i][j]
			}
		}
		yMean /= t
		for j := range xMean {
			xMean[j] /= t
		}
		for _, i := range idx {
			yW[i] = y[i] - yMean
			for j := 0; j < k; j++ {
				X.Set(i, j, rows[i][j]-xMean[j])
			}
		}
	}

	// A covariate constant within every entity cannot be estimated by the
	// within transform.
	for j, c := range spec.Covariates {
		ss := 0.0
		for i := 0; i < n; i++ {
			v := X.At(i, j)
			ss += v * v
		}
		if ss < 1e-10 {
			return nil, errors.SingularDesign(fmt.Sprintf("covariate %s has no within-entity variation", c))
		}
	}

	terms := make([]panel.Term, 0, k)
	for _, c := range spec.Covariates {
		terms = append(terms, panel.Covariate(c))
	}

	df := n - frame.NumEntities() - k
	if df < 1 {
		return nil, errors.InsufficientData("within estimator has no residual degrees of freedom")
	}
	return e.assemble(frame, spec, X, yW, terms, df, totalSS(yW))
}

// fitRandom quasi-demeans with Swamy-Arora variance components, using the
// within fit for the idiosyncratic variance and the between regression for
// the entity-effect variance. Unbalanced panels use per-entity weights.
func (e *Engine) fitRandom(frame *panel.Frame, spec econ.Spec) (*econ.FitResult, error) {
	within, err := e.fitWithin(frame, spec)
	if err != nil {
		return nil, err
	}
	sigmaE2 := within.Sigma2

	y, err := frame.Vector(spec.Outcome)
	if err != nil {
		return nil, err
	}
	rows, err := frame.Matrix(spec.Covariates)
	if err != nil {
		return nil, err
	}

	entities := frame.Entities()
	g := len(entities)
	k := len(spec.Covariates)
	if g <= k+1 {
		return nil, errors.InsufficientData("too few entities for the between regression")
	}

	// Between regression on entity means.
	yB := make([]float64, g)
	XB := mat.NewDense(g, k+1, nil)
	entityMeansY := make(map[panel.EntityID]float64, g)
	entityMeansX := make(map[panel.EntityID][]float64, g)
	entitySize := make(map[panel.EntityID]float64, g)
	harmonicSum := 0.0
	for gi, entity := range entities {
		idx := frame.EntityRows(entity)
		t := float64(len(idx))
		entitySize[entity] = t
		harmonicSum += 1 / t
		ym := 0.0
		xm := make([]float64, k)
		for _, i := range idx {
			ym += y[i]
			for j := 0; j < k; j++ {
				xm[j] += rows[i][j]
			}
		}
		ym /= t
		for j := range xm {
			xm[j] /= t
		}
		entityMeansY[entity] = ym
		entityMeansX[entity] = xm
		yB[gi] = ym
		XB.Set(gi, 0, 1)
		for j := 0; j < k; j++ {
			XB.Set(gi, j+1, xm[j])
		}
	}

	between, err := solveOLS(XB, yB)
	if err != nil {
		return nil, err
	}
	dfB := g - k - 1
	sigmaB2 := between.rss / float64(dfB)

	tHarmonic := float64(g) / harmonicSum
	sigmaU2 := sigmaB2 - sigmaE2/tHarmonic
	if sigmaU2 < 0 {
		sigmaU2 = 0
	}

	// Quasi-demeaned design with per-entity theta.
	n := frame.Len()
	yStar := make([]float64, n)
	X := mat.NewDense(n, k+1, nil)
	for _, entity := range entities {
		t := entitySize[entity]
		theta := 1 - math.Sqrt(sigmaE2/(sigmaE2+t*sigmaU2))
		ym := entityMeansY[entity]
		xm := entityMeansX[entity]
		for _, i := range frame.EntityRows(entity) {
			yStar[i] = y[i] - theta*ym
			X.Set(i, 0, 1-theta)
			for j := 0; j < k; j++ {
				X.Set(i, j+1, rows[i][j]-theta*xm[j])
			}
		}
	}

	terms := make([]panel.Term, 0, k+1)
	terms = append(terms, panel.Intercept())
	for _, c := range spec.Covariates {
		terms = append(terms, panel.Covariate(c))
	}

	df := n - k - 1
	return e.assemble(frame, spec, X, yStar, terms, df, totalSS(yStar))
}

// assemble runs the shared OLS solve and packages the immutable result.
func (e *Engine) assemble(frame *panel.Frame, spec econ.Spec, X *mat.Dense, y []float64, terms []panel.Term, df int, tss float64) (*econ.FitResult, error) {
	fit, err := solveOLS(X, y)
	if err != nil {
		return nil, errors.Wrapf(err, "fitting %s", spec)
	}
	if df < 1 {
		return nil, errors.InsufficientData(fmt.Sprintf("no residual degrees of freedom for %s", spec))
	}

	sigma2 := fit.rss / float64(df)
	cov := fit.covariance(sigma2)

	coeffs := make([]econ.Coefficient, len(terms))
	for j, term := range terms {
		se := math.Sqrt(cov.At(j, j))
		t := fit.beta[j] / se
		coeffs[j] = econ.Coefficient{
			Term:     term,
			Estimate: fit.beta[j],
			StdErr:   se,
			TStat:    t,
			PValue:   tTestPValue(t, df),
		}
	}

	r2 := 0.0
	if tss > 0 {
		r2 = 1 - fit.rss/tss
	}

	return &econ.FitResult{
		Spec:        spec,
		N:           frame.Len(),
		NumEntities: frame.NumEntities(),
		NumPeriods:  frame.NumPeriods(),
		Terms:       terms,
		Coeffs:      coeffs,
		Design:      X,
		Residuals:   fit.residuals,
		Fitted:      fit.fitted,
		RowEntities: frame.RowEntities(),
		RowYears:    frame.RowYears(),
		RSS:         fit.rss,
		R2:          r2,
		Sigma2:      sigma2,
		DF:          df,
		Cov:         cov,
	}, nil
}
