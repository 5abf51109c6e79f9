package diagnostics

import (
	"gonum.org/v1/gonum/mat"

	"sanepanel/internal/errors"
)

// leastSquares is the minimal OLS solve the auxiliary regressions need.
func leastSquares(X *mat.Dense, y []float64) (beta []float64, residuals []float64, rss float64, err error) {
	n, k := X.Dims()
	if n <= k {
		return nil, nil, 0, errors.InsufficientData("auxiliary regression has fewer rows than columns")
	}

	yVec := mat.NewDense(n, 1, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(X)
	var betaMat mat.Dense
	if solveErr := qr.SolveTo(&betaMat, false, yVec); solveErr != nil {
		return nil, nil, 0, errors.SingularDesign("auxiliary regression design is rank deficient")
	}

	beta = make([]float64, k)
	for j := 0; j < k; j++ {
		beta[j] = betaMat.At(j, 0)
	}
	residuals = make([]float64, n)
	for i := 0; i < n; i++ {
		f := 0.0
		for j := 0; j < k; j++ {
			f += X.At(i, j) * beta[j]
		}
		residuals[i] = y[i] - f
		rss += residuals[i] * residuals[i]
	}
	return beta, residuals, rss, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}
