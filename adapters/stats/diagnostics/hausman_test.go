package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanepanel/adapters/stats/fitter"
	"sanepanel/domain/core"
	"sanepanel/domain/econ"
	"sanepanel/internal/testkit"
)

func fitPair(t *testing.T, cfg testkit.PanelConfig, covariates []string) (*econ.FitResult, *econ.FitResult) {
	t.Helper()
	frame := testkit.Generate(cfg)
	engine := fitter.NewEngine()

	fixed, err := engine.Fit(frame, econ.Spec{Outcome: cfg.Outcome, Covariates: covariates, Effect: econ.EffectFixed})
	require.NoError(t, err)
	random, err := engine.Fit(frame, econ.Spec{Outcome: cfg.Outcome, Covariates: covariates, Effect: econ.EffectRandom})
	require.NoError(t, err)
	return fixed, random
}

func TestHausmanRecommendsFixedWhenEffectsCorrelate(t *testing.T) {
	fixed, random := fitPair(t, testkit.PanelConfig{
		Entities:            80,
		Periods:             10,
		Seed:                21,
		Outcome:             "AG001",
		Covariates:          []string{"FN002", "FN015"},
		Beta:                []float64{1.5, -0.8},
		NoiseSD:             0.3,
		EntityEffectSD:      2.0,
		EffectIntoCovariate: 1.0,
	}, []string{"FN002", "FN015"})

	decision, err := NewHausman().Hausman(fixed, random, 0.05)
	require.NoError(t, err)

	assert.True(t, decision.Result.Rejected)
	assert.Equal(t, econ.EffectFixed, decision.Recommends)
	assert.Equal(t, 2, decision.Result.DF)
	assert.Less(t, decision.Result.PValue, 0.05)
}

func TestHausmanRecommendsRandomWhenEffectsIndependent(t *testing.T) {
	fixed, random := fitPair(t, testkit.PanelConfig{
		Entities:       80,
		Periods:        10,
		Seed:           22,
		Outcome:        "AG001",
		Covariates:     []string{"FN002", "FN015"},
		Beta:           []float64{1.5, -0.8},
		NoiseSD:        0.3,
		EntityEffectSD: 1.0,
	}, []string{"FN002", "FN015"})

	// A stringent level keeps this deterministic: under the null the
	// statistic clears the 0.1% critical value essentially never.
	decision, err := NewHausman().Hausman(fixed, random, 0.001)
	require.NoError(t, err)

	assert.False(t, decision.Result.Rejected)
	assert.Equal(t, econ.EffectRandom, decision.Recommends)
}

func TestHausmanRejectsMismatchedModels(t *testing.T) {
	cfg := testkit.PanelConfig{
		Entities:       40,
		Periods:        8,
		Seed:           23,
		Outcome:        "AG001",
		Covariates:     []string{"FN002", "FN015"},
		Beta:           []float64{1.0, 0.5},
		NoiseSD:        0.4,
		EntityEffectSD: 1.0,
	}
	frame := testkit.Generate(cfg)
	engine := fitter.NewEngine()

	fixed, err := engine.Fit(frame, econ.Spec{Outcome: "AG001", Covariates: []string{"FN002", "FN015"}, Effect: econ.EffectFixed})
	require.NoError(t, err)

	// Different covariate set.
	randomOther, err := engine.Fit(frame, econ.Spec{Outcome: "AG001", Covariates: []string{"FN002"}, Effect: econ.EffectRandom})
	require.NoError(t, err)
	_, err = NewHausman().Hausman(fixed, randomOther, 0.05)
	assert.True(t, core.IsIncompatibleModels(err))

	// Wrong effect types in either slot.
	pooled, err := engine.Fit(frame, econ.Spec{Outcome: "AG001", Covariates: []string{"FN002", "FN015"}, Effect: econ.EffectPooled})
	require.NoError(t, err)
	_, err = NewHausman().Hausman(pooled, randomOther, 0.05)
	assert.True(t, core.IsIncompatibleModels(err))
	_, err = NewHausman().Hausman(fixed, pooled, 0.05)
	assert.True(t, core.IsIncompatibleModels(err))
}
