package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal/errors"
)

// Wooldridge is the first-difference test for serial correlation in panel
// residuals. Under no serial correlation the first-differenced residuals
// have lag-1 autocorrelation of exactly -0.5; the test rejects when the
// estimated coefficient departs from that value.
type Wooldridge struct{}

// NewWooldridge creates the serial-correlation test.
func NewWooldridge() *Wooldridge {
	return &Wooldridge{}
}

// Name returns the test identity.
func (t *Wooldridge) Name() string { return "wooldridge_serial" }

// Run first-differences the raw panel within each entity, fits OLS of the
// differenced outcome on the differenced covariates, then regresses those
// residuals on their own entity-wise lag.
func (t *Wooldridge) Run(frame *panel.Frame, fit *econ.FitResult, alpha float64) (econ.TestResult, error) {
	if frame.NumPeriods() < 3 {
		return econ.TestResult{}, errors.InsufficientData("serial-correlation test needs at least 3 time periods")
	}

	y, err := frame.Vector(fit.Spec.Outcome)
	if err != nil {
		return econ.TestResult{}, err
	}
	rows, err := frame.Matrix(fit.Spec.Covariates)
	if err != nil {
		return econ.TestResult{}, err
	}

	k := len(fit.Spec.Covariates)
	var dy []float64
	var dx [][]float64
	// diffEntity[i] marks which entity produced differenced row i so lag
	// pairs never straddle entities.
	var diffEntity []panel.EntityID

	for _, entity := range frame.Entities() {
		idx := frame.EntityRows(entity)
		for pos := 1; pos < len(idx); pos++ {
			prev, cur := idx[pos-1], idx[pos]
			dy = append(dy, y[cur]-y[prev])
			row := make([]float64, k)
			for j := 0; j < k; j++ {
				row[j] = rows[cur][j] - rows[prev][j]
			}
			dx = append(dx, row)
			diffEntity = append(diffEntity, entity)
		}
	}

	if len(dy) <= k {
		return econ.TestResult{}, errors.InsufficientData("too few first differences for the residual regression")
	}

	X := mat.NewDense(len(dy), k, nil)
	for i, row := range dx {
		for j, v := range row {
			X.Set(i, j, v)
		}
	}
	_, resid, _, err := leastSquares(X, dy)
	if err != nil {
		return econ.TestResult{}, err
	}

	// Lag pairs of the differenced residuals within each entity.
	var num, den float64
	m := 0
	var pairs [][2]float64
	for i := 1; i < len(resid); i++ {
		if diffEntity[i] != diffEntity[i-1] {
			continue
		}
		num += resid[i] * resid[i-1]
		den += resid[i-1] * resid[i-1]
		pairs = append(pairs, [2]float64{resid[i-1], resid[i]})
		m++
	}
	if m < 3 || den == 0 {
		return econ.TestResult{}, errors.InsufficientData("too few residual lag pairs for the serial-correlation test")
	}

	b := num / den
	sse := 0.0
	for _, p := range pairs {
		e := p[1] - b*p[0]
		sse += e * e
	}
	df := m - 1
	se := math.Sqrt(sse / float64(df) / den)
	if se == 0 {
		return econ.TestResult{}, errors.InsufficientData("degenerate residual variance in the serial-correlation test")
	}

	stat := (b + 0.5) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	p := 2 * (1 - dist.CDF(math.Abs(stat)))

	return econ.TestResult{
		Name:      t.Name(),
		Statistic: stat,
		DF:        df,
		PValue:    p,
		Alpha:     alpha,
		Rejected:  p < alpha,
		Detail:    fmt.Sprintf("lag coefficient %.4f against the null value -0.5 over %d pairs", b, m),
	}, nil
}
