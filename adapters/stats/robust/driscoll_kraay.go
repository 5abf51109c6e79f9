// Package robust recomputes coefficient inference under the Driscoll-Kraay
// covariance estimator: a Bartlett-kernel weighted average of cross-sectional
// moment vectors over time lags, robust to heteroscedasticity, serial
// correlation and cross-sectional dependence simultaneously.
package robust

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sanepanel/domain/econ"
	"sanepanel/internal/errors"
)

// DriscollKraay is a stateless robust covariance estimator.
type DriscollKraay struct{}

// NewDriscollKraay creates the estimator.
func NewDriscollKraay() *DriscollKraay {
	return &DriscollKraay{}
}

// Table rebuilds the fit's coefficient table with Driscoll-Kraay standard
// errors. maxLags <= 0 selects floor(4*(T/100)^(2/9)) with a floor of 1.
func (d *DriscollKraay) Table(fit *econ.FitResult, maxLags int) (econ.CoefficientTable, error) {
	n, k := fit.Design.Dims()
	if len(fit.Residuals) != n || len(fit.RowYears) != n {
		return econ.CoefficientTable{}, errors.InternalError("fit design, residuals and year index are inconsistent")
	}

	years := distinctSorted(fit.RowYears)
	T := len(years)
	if T < 2 {
		return econ.CoefficientTable{}, errors.InsufficientData("robust covariance needs at least 2 time periods")
	}

	lags := maxLags
	if lags <= 0 {
		lags = int(math.Floor(4 * math.Pow(float64(T)/100, 2.0/9.0)))
		if lags < 1 {
			lags = 1
		}
	}
	if lags > T-1 {
		lags = T - 1
	}

	// Cross-sectional moment vector per period: h_t = sum_i x_it * e_it.
	yearPos := make(map[int]int, T)
	for pos, y := range years {
		yearPos[y] = pos
	}
	h := make([][]float64, T)
	for t := range h {
		h[t] = make([]float64, k)
	}
	for i := 0; i < n; i++ {
		t := yearPos[fit.RowYears[i]]
		e := fit.Residuals[i]
		for j := 0; j < k; j++ {
			h[t][j] += fit.Design.At(i, j) * e
		}
	}

	// S = Omega_0 + sum_l w_l (Omega_l + Omega_l'), Bartlett weights.
	S := mat.NewDense(k, k, nil)
	addOuter(S, h, 0, 1)
	for l := 1; l <= lags; l++ {
		w := 1 - float64(l)/float64(lags+1)
		omega := mat.NewDense(k, k, nil)
		addOuter(omega, h, l, 1)
		var omegaT mat.Dense
		omegaT.CloneFrom(omega.T())
		omega.Add(omega, &omegaT)
		omega.Scale(w, omega)
		S.Add(S, omega)
	}

	var xtx mat.Dense
	xtx.Mul(fit.Design.T(), fit.Design)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return econ.CoefficientTable{}, errors.SingularDesign("X'X is not invertible in the robust covariance")
	}

	var half, V mat.Dense
	half.Mul(&xtxInv, S)
	V.Mul(&half, &xtxInv)

	df := T - 1
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}

	rows := make([]econ.Coefficient, len(fit.Coeffs))
	for j, c := range fit.Coeffs {
		se := math.Sqrt(V.At(j, j))
		t := c.Estimate / se
		p := 2 * (1 - dist.CDF(math.Abs(t)))
		rows[j] = econ.Coefficient{
			Term:     c.Term,
			Estimate: c.Estimate,
			StdErr:   se,
			TStat:    t,
			PValue:   p,
		}
	}

	return econ.CoefficientTable{
		Spec:   fit.Spec,
		Kernel: "driscoll-kraay",
		Lags:   lags,
		Rows:   rows,
	}, nil
}

// addOuter accumulates scale * sum_t h_t h_{t-l}' into dst.
func addOuter(dst *mat.Dense, h [][]float64, lag int, scale float64) {
	k := len(h[0])
	for t := lag; t < len(h); t++ {
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				dst.Set(i, j, dst.At(i, j)+scale*h[t][i]*h[t-lag][j])
			}
		}
	}
}

func distinctSorted(years []int) []int {
	set := make(map[int]bool, len(years))
	for _, y := range years {
		set[y] = true
	}
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
