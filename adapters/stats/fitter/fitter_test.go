package fitter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanepanel/domain/core"
	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal/testkit"
)

func TestPooledRecoversCoefficients(t *testing.T) {
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:   50,
		Periods:    12,
		Seed:       42,
		Outcome:    "AG001",
		Covariates: []string{"FN002", "FN015"},
		Beta:       []float64{1.5, -0.8},
		Intercept:  3.0,
		NoiseSD:    0.2,
	})

	fit, err := NewEngine().Fit(frame, econ.Spec{
		Outcome:    "AG001",
		Covariates: []string{"FN002", "FN015"},
		Effect:     econ.EffectPooled,
	})
	require.NoError(t, err)

	c0, ok := fit.Coefficient("const")
	require.True(t, ok)
	assert.InDelta(t, 3.0, c0.Estimate, 0.05)

	c1, ok := fit.Coefficient("FN002")
	require.True(t, ok)
	assert.InDelta(t, 1.5, c1.Estimate, 0.05)

	c2, ok := fit.Coefficient("FN015")
	require.True(t, ok)
	assert.InDelta(t, -0.8, c2.Estimate, 0.05)

	assert.Equal(t, frame.Len(), fit.N)
	assert.Greater(t, fit.R2, 0.9)
}

func TestWithinRecoversUnderEntityEffects(t *testing.T) {
	// Entity effects leak into FN002, so pooled is biased but within is not.
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:            60,
		Periods:             10,
		Seed:                7,
		Outcome:             "AG001",
		Covariates:          []string{"FN002", "FN015"},
		Beta:                []float64{1.5, -0.8},
		Intercept:           3.0,
		NoiseSD:             0.2,
		EntityEffectSD:      2.0,
		EffectIntoCovariate: 0.8,
	})

	engine := NewEngine()
	spec := econ.Spec{Outcome: "AG001", Covariates: []string{"FN002", "FN015"}}

	spec.Effect = econ.EffectFixed
	fixed, err := engine.Fit(frame, spec)
	require.NoError(t, err)

	c1, ok := fixed.Coefficient("FN002")
	require.True(t, ok)
	assert.InDelta(t, 1.5, c1.Estimate, 0.05)

	spec.Effect = econ.EffectPooled
	pooled, err := engine.Fit(frame, spec)
	require.NoError(t, err)

	p1, ok := pooled.Coefficient("FN002")
	require.True(t, ok)
	// The leaked entity effect pulls the pooled estimate away from truth.
	assert.Greater(t, math.Abs(p1.Estimate-1.5), 10*math.Abs(c1.Estimate-1.5))
}

func TestRandomRecoversCoefficients(t *testing.T) {
	// Entity effects uncorrelated with regressors: RE is consistent.
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:       80,
		Periods:        10,
		Seed:           11,
		Outcome:        "ES001",
		Covariates:     []string{"FN002", "FN015"},
		Beta:           []float64{1.5, -0.8},
		Intercept:      3.0,
		NoiseSD:        0.3,
		EntityEffectSD: 1.0,
	})

	fit, err := NewEngine().Fit(frame, econ.Spec{
		Outcome:    "ES001",
		Covariates: []string{"FN002", "FN015"},
		Effect:     econ.EffectRandom,
	})
	require.NoError(t, err)

	c1, ok := fit.Coefficient("FN002")
	require.True(t, ok)
	assert.InDelta(t, 1.5, c1.Estimate, 0.05)

	c2, ok := fit.Coefficient("FN015")
	require.True(t, ok)
	assert.InDelta(t, -0.8, c2.Estimate, 0.05)
}

func TestCollinearDesignFails(t *testing.T) {
	base := testkit.Generate(testkit.PanelConfig{
		Entities:   10,
		Periods:    6,
		Seed:       3,
		Outcome:    "AG001",
		Covariates: []string{"FN002"},
		Beta:       []float64{1.0},
		NoiseSD:    0.5,
	})

	// Rebuild the frame with an exact copy of FN002 as a second covariate.
	records := make([]panel.Record, base.Len())
	for i := 0; i < base.Len(); i++ {
		rec := base.Record(i)
		values := make(map[string]float64, len(rec.Values)+1)
		for k, v := range rec.Values {
			values[k] = v
		}
		values["FN003"] = 2 * values["FN002"]
		records[i] = panel.Record{Entity: rec.Entity, Year: rec.Year, Values: values}
	}
	frame, err := panel.NewFrame(records, []string{"AG001", "FN002", "FN003"})
	require.NoError(t, err)

	for _, effect := range []econ.EffectType{econ.EffectPooled, econ.EffectFixed} {
		_, err := NewEngine().Fit(frame, econ.Spec{
			Outcome:    "AG001",
			Covariates: []string{"FN002", "FN003"},
			Effect:     effect,
		})
		assert.True(t, core.IsSingularDesign(err), "effect %s: got %v", effect, err)
	}
}

func TestTimeInvariantCovariateFailsWithin(t *testing.T) {
	base := testkit.Generate(testkit.PanelConfig{
		Entities:   10,
		Periods:    6,
		Seed:       5,
		Outcome:    "AG001",
		Covariates: []string{"FN002"},
		Beta:       []float64{1.0},
		NoiseSD:    0.5,
	})

	records := make([]panel.Record, base.Len())
	for i := 0; i < base.Len(); i++ {
		rec := base.Record(i)
		values := make(map[string]float64, len(rec.Values)+1)
		for k, v := range rec.Values {
			values[k] = v
		}
		// Constant within each entity: zero within-variance.
		values["FN030"] = float64(rec.Entity[len(rec.Entity)-1])
		records[i] = panel.Record{Entity: rec.Entity, Year: rec.Year, Values: values}
	}
	frame, err := panel.NewFrame(records, []string{"AG001", "FN002", "FN030"})
	require.NoError(t, err)

	_, err = NewEngine().Fit(frame, econ.Spec{
		Outcome:    "AG001",
		Covariates: []string{"FN002", "FN030"},
		Effect:     econ.EffectFixed,
	})
	require.Error(t, err)
	assert.True(t, core.IsSingularDesign(err))
	assert.Contains(t, err.Error(), "FN030")
}

func TestSpecValidation(t *testing.T) {
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:   5,
		Periods:    4,
		Seed:       1,
		Outcome:    "AG001",
		Covariates: []string{"FN002"},
		Beta:       []float64{1.0},
		NoiseSD:    0.5,
	})
	engine := NewEngine()

	_, err := engine.Fit(frame, econ.Spec{Outcome: "MISSING", Covariates: []string{"FN002"}, Effect: econ.EffectPooled})
	assert.True(t, core.IsMalformedInput(err))

	_, err = engine.Fit(frame, econ.Spec{Outcome: "AG001", Covariates: []string{"NOPE"}, Effect: econ.EffectPooled})
	assert.True(t, core.IsMalformedInput(err))

	_, err = engine.Fit(frame, econ.Spec{Outcome: "AG001", Covariates: []string{"AG001"}, Effect: econ.EffectPooled})
	assert.True(t, core.IsMalformedInput(err))

	_, err = engine.Fit(frame, econ.Spec{Outcome: "AG001", Covariates: nil, Effect: econ.EffectPooled})
	assert.True(t, core.IsMalformedInput(err))
}

func TestWithinResidualsSumToZeroPerEntity(t *testing.T) {
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:       12,
		Periods:        8,
		Seed:           9,
		Outcome:        "AG001",
		Covariates:     []string{"FN002", "FN015"},
		Beta:           []float64{1.0, 0.5},
		NoiseSD:        0.4,
		EntityEffectSD: 1.5,
	})

	fit, err := NewEngine().Fit(frame, econ.Spec{
		Outcome:    "AG001",
		Covariates: []string{"FN002", "FN015"},
		Effect:     econ.EffectFixed,
	})
	require.NoError(t, err)

	sums := make(map[panel.EntityID]float64)
	for i, e := range fit.RowEntities {
		sums[e] += fit.Residuals[i]
	}
	for entity, s := range sums {
		assert.InDelta(t, 0, s, 1e-8, "entity %s", entity)
	}
}
