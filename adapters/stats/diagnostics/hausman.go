package diagnostics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal/errors"
)

// Hausman compares fixed against random effects estimates. Null hypothesis:
// entity effects are uncorrelated with the regressors, so random effects is
// consistent and preferable on efficiency grounds.
type Hausman struct{}

// NewHausman creates the specification tester.
func NewHausman() *Hausman {
	return &Hausman{}
}

// Hausman computes the quadratic-form statistic over the common covariates
// and pairs it with an explicit recommendation. The caller decides whether
// the recommendation drives the final model.
func (h *Hausman) Hausman(fixed, random *econ.FitResult, alpha float64) (econ.HausmanDecision, error) {
	if fixed.Spec.Effect != econ.EffectFixed || random.Spec.Effect != econ.EffectRandom {
		return econ.HausmanDecision{}, errors.IncompatibleModels(
			fmt.Sprintf("expected fixed and random effects fits, got %s and %s", fixed.Spec.Effect, random.Spec.Effect))
	}
	if !fixed.Spec.SameDesign(econ.Spec{Outcome: random.Spec.Outcome, Covariates: random.Spec.Covariates, Effect: econ.EffectFixed}) {
		return econ.HausmanDecision{}, errors.IncompatibleModels(
			fmt.Sprintf("models fit different designs: %s vs %s", fixed.Spec, random.Spec))
	}

	covs := fixed.Spec.Covariates
	k := len(covs)

	fIdx, err := termIndex(fixed, covs)
	if err != nil {
		return econ.HausmanDecision{}, err
	}
	rIdx, err := termIndex(random, covs)
	if err != nil {
		return econ.HausmanDecision{}, err
	}

	d := mat.NewVecDense(k, nil)
	V := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		d.SetVec(i, fixed.Coeffs[fIdx[i]].Estimate-random.Coeffs[rIdx[i]].Estimate)
		for j := 0; j < k; j++ {
			V.Set(i, j, fixed.Cov.At(fIdx[i], fIdx[j])-random.Cov.At(rIdx[i], rIdx[j]))
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(V, d); err != nil {
		return econ.HausmanDecision{}, errors.SingularDesign("covariance difference is singular in the Hausman test")
	}

	stat := mat.Dot(d, &x)
	detail := fmt.Sprintf("comparing %d common covariates", k)
	if stat < 0 {
		// The finite-sample covariance difference is not positive definite.
		stat = 0
		detail += "; statistic clamped at 0 (covariance difference not positive definite)"
	}

	chi2 := distuv.ChiSquared{K: float64(k)}
	p := 1 - chi2.CDF(stat)
	rejected := p < alpha

	recommends := econ.EffectRandom
	if rejected {
		recommends = econ.EffectFixed
	}

	return econ.HausmanDecision{
		Result: econ.TestResult{
			Name:      "hausman",
			Statistic: stat,
			DF:        k,
			PValue:    p,
			Alpha:     alpha,
			Rejected:  rejected,
			Detail:    detail,
		},
		Recommends: recommends,
	}, nil
}

// termIndex locates each covariate's coefficient position in a fit.
func termIndex(fit *econ.FitResult, covs []string) ([]int, error) {
	idx := make([]int, len(covs))
	for i, name := range covs {
		found := false
		for j, term := range fit.Terms {
			if term.Kind == panel.TermCovariate && term.Name == name {
				idx[i] = j
				found = true
				break
			}
		}
		if !found {
			return nil, errors.IncompatibleModels(fmt.Sprintf("covariate %s missing from %s fit", name, fit.Spec.Effect))
		}
	}
	return idx, nil
}
