package robust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanepanel/adapters/stats/fitter"
	"sanepanel/domain/econ"
	"sanepanel/internal/testkit"
)

func TestRobustErrorsWidenUnderSerialCorrelation(t *testing.T) {
	// Strongly autocorrelated errors with common shocks: the kernel estimator
	// must not report tighter inference than the naive covariance.
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:               10,
		Periods:                40,
		Seed:                   41,
		Outcome:                "AG001",
		Covariates:             []string{"FN002", "FN015"},
		Beta:                   []float64{1.0, -0.5},
		NoiseSD:                0.6,
		ARRho:                  0.85,
		EntityEffectSD:         1.0,
		CommonShockSD:          0.8,
		CovariateCommonShockSD: 1.0,
	})

	fit, err := fitter.NewEngine().Fit(frame, econ.Spec{
		Outcome:    "AG001",
		Covariates: []string{"FN002", "FN015"},
		Effect:     econ.EffectFixed,
	})
	require.NoError(t, err)

	table, err := NewDriscollKraay().Table(fit, 0)
	require.NoError(t, err)
	assert.Equal(t, "driscoll-kraay", table.Kernel)
	assert.Greater(t, table.Lags, 0)

	for _, naive := range fit.Coeffs {
		robust, ok := table.Row(naive.Term.Name)
		require.True(t, ok, "missing robust row for %s", naive.Term.Name)
		assert.Greater(t, robust.StdErr, naive.StdErr,
			"robust se for %s should exceed naive under rho=0.85 with common shocks", naive.Term.Name)
	}
}

func TestRobustTableMatchesEstimates(t *testing.T) {
	// Point estimates never change; only the covariance does.
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:       15,
		Periods:        12,
		Seed:           42,
		Outcome:        "ES001",
		Covariates:     []string{"FN002", "FN015"},
		Beta:           []float64{1.0, -0.5},
		NoiseSD:        0.4,
		EntityEffectSD: 1.0,
	})

	fit, err := fitter.NewEngine().Fit(frame, econ.Spec{
		Outcome:    "ES001",
		Covariates: []string{"FN002", "FN015"},
		Effect:     econ.EffectFixed,
	})
	require.NoError(t, err)

	table, err := NewDriscollKraay().Table(fit, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Lags)
	require.Len(t, table.Rows, len(fit.Coeffs))

	for i, row := range table.Rows {
		assert.Equal(t, fit.Coeffs[i].Term, row.Term)
		assert.Equal(t, fit.Coeffs[i].Estimate, row.Estimate)
		assert.Greater(t, row.StdErr, 0.0)
		assert.GreaterOrEqual(t, row.PValue, 0.0)
		assert.LessOrEqual(t, row.PValue, 1.0)
	}
}

func TestRobustNeedsTwoPeriods(t *testing.T) {
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:   20,
		Periods:    2,
		Seed:       43,
		Outcome:    "AG001",
		Covariates: []string{"FN002"},
		Beta:       []float64{1.0},
		NoiseSD:    0.4,
	})
	fit, err := fitter.NewEngine().Fit(frame, econ.Spec{
		Outcome:    "AG001",
		Covariates: []string{"FN002"},
		Effect:     econ.EffectFixed,
	})
	require.NoError(t, err)

	// Two periods is the floor; the table must still come back.
	table, err := NewDriscollKraay().Table(fit, 0)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}
