package diagnostics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
)

// BreuschPagan tests homoscedasticity by regressing squared residuals on the
// model covariates. LM = n * R-squared of the auxiliary regression,
// chi-squared with k degrees of freedom under the null.
type BreuschPagan struct{}

// NewBreuschPagan creates the heteroscedasticity test.
func NewBreuschPagan() *BreuschPagan {
	return &BreuschPagan{}
}

// Name returns the test identity.
func (t *BreuschPagan) Name() string { return "breusch_pagan" }

// Run performs the LM test against the fit's residuals.
func (t *BreuschPagan) Run(frame *panel.Frame, fit *econ.FitResult, alpha float64) (econ.TestResult, error) {
	n := len(fit.Residuals)
	_, k := fit.Design.Dims()

	e2 := make([]float64, n)
	for i, e := range fit.Residuals {
		e2[i] = e * e
	}

	// Auxiliary design: intercept plus the (transformed) model covariates.
	X := mat.NewDense(n, k+1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j := 0; j < k; j++ {
			X.Set(i, j+1, fit.Design.At(i, j))
		}
	}

	_, _, rss, err := leastSquares(X, e2)
	if err != nil {
		return econ.TestResult{}, err
	}

	m := mean(e2)
	tss := 0.0
	for _, v := range e2 {
		d := v - m
		tss += d * d
	}
	r2 := 0.0
	if tss > 0 {
		r2 = 1 - rss/tss
	}

	stat := float64(n) * r2
	chi2 := distuv.ChiSquared{K: float64(k)}
	p := 1 - chi2.CDF(stat)

	return econ.TestResult{
		Name:      t.Name(),
		Statistic: stat,
		DF:        k,
		PValue:    p,
		Alpha:     alpha,
		Rejected:  p < alpha,
		Detail:    fmt.Sprintf("LM test of squared residuals on %d covariates", k),
	}, nil
}
