package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal/errors"
)

// PesaranCD tests cross-sectional dependence: whether residuals are
// correlated across entities at the same time point. The statistic averages
// pairwise residual correlations over overlapping periods and is standard
// normal under cross-sectional independence.
type PesaranCD struct{}

// NewPesaranCD creates the cross-sectional-dependence test.
func NewPesaranCD() *PesaranCD {
	return &PesaranCD{}
}

// Name returns the test identity.
func (t *PesaranCD) Name() string { return "pesaran_cd" }

// Run computes the CD statistic from the fit's residuals.
func (t *PesaranCD) Run(frame *panel.Frame, fit *econ.FitResult, alpha float64) (econ.TestResult, error) {
	if frame.NumPeriods() < 2 {
		return econ.TestResult{}, errors.InsufficientData("cross-sectional dependence test needs at least 2 time periods")
	}

	// Residuals keyed by (entity, year).
	byEntity := make(map[panel.EntityID]map[int]float64)
	for i, e := range fit.Residuals {
		entity := fit.RowEntities[i]
		if byEntity[entity] == nil {
			byEntity[entity] = make(map[int]float64)
		}
		byEntity[entity][fit.RowYears[i]] = e
	}

	entities := frame.Entities()
	sum := 0.0
	pairs := 0
	for a := 0; a < len(entities); a++ {
		for b := a + 1; b < len(entities); b++ {
			ra, rb := byEntity[entities[a]], byEntity[entities[b]]
			var xs, ys []float64
			for year, va := range ra {
				if vb, ok := rb[year]; ok {
					xs = append(xs, va)
					ys = append(ys, vb)
				}
			}
			if len(xs) < 2 {
				continue
			}
			rho, ok := pearson(xs, ys)
			if !ok {
				continue
			}
			sum += math.Sqrt(float64(len(xs))) * rho
			pairs++
		}
	}

	if pairs == 0 {
		return econ.TestResult{}, errors.InsufficientData("no entity pairs share enough periods for the CD test")
	}

	stat := sum / math.Sqrt(float64(pairs))
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(stat)))

	return econ.TestResult{
		Name:      t.Name(),
		Statistic: stat,
		DF:        0,
		PValue:    p,
		Alpha:     alpha,
		Rejected:  p < alpha,
		Detail:    fmt.Sprintf("average pairwise residual correlation over %d entity pairs", pairs),
	}, nil
}

// pearson is the sample correlation; ok is false for zero-variance inputs.
func pearson(xs, ys []float64) (float64, bool) {
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}
