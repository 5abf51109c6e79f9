package fitter

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sanepanel/internal/errors"
)

// olsFit is the raw least-squares solution shared by all three estimators.
type olsFit struct {
	beta      []float64
	fitted    []float64
	residuals []float64
	rss       float64
	xtxInv    *mat.Dense
}

// solveOLS solves y = X b by QR and keeps (X'X)^-1 for covariance work.
// Rank deficiency surfaces as a SINGULAR_DESIGN error.
func solveOLS(X *mat.Dense, y []float64) (*olsFit, error) {
	n, k := X.Dims()
	if n <= k {
		return nil, errors.InsufficientData("fewer observations than design columns")
	}

	yVec := mat.NewDense(n, 1, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(X)

	var betaMat mat.Dense
	if err := qr.SolveTo(&betaMat, false, yVec); err != nil {
		return nil, errors.SingularDesign("design matrix is rank deficient")
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, errors.SingularDesign("X'X is not invertible")
	}

	beta := make([]float64, k)
	for j := 0; j < k; j++ {
		beta[j] = betaMat.At(j, 0)
	}

	fitted := make([]float64, n)
	residuals := make([]float64, n)
	rss := 0.0
	for i := 0; i < n; i++ {
		f := 0.0
		for j := 0; j < k; j++ {
			f += X.At(i, j) * beta[j]
		}
		fitted[i] = f
		residuals[i] = y[i] - f
		rss += residuals[i] * residuals[i]
	}

	return &olsFit{
		beta:      beta,
		fitted:    fitted,
		residuals: residuals,
		rss:       rss,
		xtxInv:    &xtxInv,
	}, nil
}

// covariance scales (X'X)^-1 by sigma2 into a symmetric matrix.
func (f *olsFit) covariance(sigma2 float64) *mat.SymDense {
	k := len(f.beta)
	cov := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			cov.SetSym(i, j, sigma2*f.xtxInv.At(i, j))
		}
	}
	return cov
}

// tTestPValue is the two-sided p-value of a t statistic with df degrees of
// freedom.
func tTestPValue(t float64, df int) float64 {
	if df < 1 {
		return math.NaN()
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// totalSS is the sum of squared deviations around the mean.
func totalSS(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	tss := 0.0
	for _, v := range y {
		d := v - mean
		tss += d * d
	}
	return tss
}
