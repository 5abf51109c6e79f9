package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanepanel/domain/econ"
	"sanepanel/internal/config"
	"sanepanel/internal/testkit"
)

func testConfig(outcomes, covariates []string) *config.Config {
	return &config.Config{
		Data: config.DataConfig{
			EntityCol:  "COD_MUN",
			YearCol:    "ANO_REF",
			Outcomes:   outcomes,
			Covariates: covariates,
		},
		Model:     config.ModelConfig{Alpha: 0.05, FinalEffects: "fixed"},
		Inference: config.InferenceConfig{MaxLags: 0},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	covariates := []string{"FN002", "FN015", "FN026"}
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:            40,
		Periods:             10,
		Seed:                61,
		Outcome:             "AG001",
		Covariates:          covariates,
		Beta:                []float64{2.0, -1.5, 0.0},
		Intercept:           50,
		NoiseSD:             0.5,
		EntityEffectSD:      2.0,
		EffectIntoCovariate: 0.8,
	})

	pipeline := NewPipeline(testConfig([]string{"AG001"}, covariates), nil)
	report, err := pipeline.Run(context.Background(), frame)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.NotEmpty(t, report.Manifest.RunID)
	assert.Equal(t, frame.Len(), report.Manifest.Observations)
	assert.Empty(t, report.Manifest.Failures)

	// Exploration covers outcome plus covariates.
	assert.Len(t, report.Exploration.Summaries, 4)
	assert.Len(t, report.Exploration.CorrOrder, 4)

	require.Len(t, report.Outcomes, 1)
	a := report.Outcomes[0]
	assert.Equal(t, "AG001", a.Outcome)
	require.NotNil(t, a.Pooled)
	require.NotNil(t, a.Fixed)
	require.NotNil(t, a.Random)
	assert.Len(t, a.Diagnostics, 3)
	assert.NotEmpty(t, a.RobustFull.Rows)
	assert.NotEmpty(t, a.Selection.Covariates)
	require.NotNil(t, a.ReducedFixed)
	assert.Equal(t, econ.EffectFixed, a.FinalEffect)
	assert.False(t, a.HausmanApplied)

	// Reduced model and its robust table agree on the covariate set.
	assert.Equal(t, a.Selection.Covariates, a.ReducedFixed.Spec.Covariates)
	assert.Len(t, a.RobustReduced.Rows, len(a.ReducedFixed.Coeffs))

	text := RenderReport(report)
	assert.Contains(t, text, "Outcome AG001")
	assert.Contains(t, text, "Hausman")
	assert.Contains(t, text, "Driscoll-Kraay")
}

func TestPipelineAppliesHausmanWhenAuto(t *testing.T) {
	covariates := []string{"FN002", "FN015"}
	// No entity/regressor correlation: Hausman should prefer random effects.
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:       80,
		Periods:        10,
		Seed:           62,
		Outcome:        "ES001",
		Covariates:     covariates,
		Beta:           []float64{2.0, -1.5},
		Intercept:      30,
		NoiseSD:        0.4,
		EntityEffectSD: 1.0,
	})

	cfg := testConfig([]string{"ES001"}, covariates)
	cfg.Model.FinalEffects = "auto"

	report, err := NewPipeline(cfg, nil).Run(context.Background(), frame)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	a := report.Outcomes[0]
	assert.True(t, a.HausmanApplied)
	assert.Equal(t, a.Hausman.Recommends, a.FinalEffect)
	assert.Equal(t, a.FinalEffect, a.ReducedFixed.Spec.Effect)
}

func TestPipelineIsolatesOutcomeFailures(t *testing.T) {
	covariates := []string{"FN002", "FN015"}
	frame := testkit.Generate(testkit.PanelConfig{
		Entities:       30,
		Periods:        8,
		Seed:           63,
		Outcome:        "AG001",
		Covariates:     covariates,
		Beta:           []float64{2.0, -1.5},
		NoiseSD:        0.4,
		EntityEffectSD: 1.0,
	})

	// ES001 is not in the frame, so that outcome fails while AG001 completes.
	report, err := NewPipeline(testConfig([]string{"AG001", "ES001"}, covariates), nil).Run(context.Background(), frame)
	require.Error(t, err)
	require.NotNil(t, report)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "AG001", report.Outcomes[0].Outcome)
	assert.Contains(t, report.Manifest.Failures, "ES001")

	text := strings.ToLower(RenderReport(report))
	assert.Contains(t, text, "failed es001")
}
