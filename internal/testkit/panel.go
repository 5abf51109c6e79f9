// Package testkit generates synthetic balanced panels with known data
// generating processes, so estimator tests can check recovery against truth.
package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"sanepanel/domain/panel"
)

// PanelConfig describes one synthetic data generating process:
//
//	y_it = intercept + sum_j beta_j * x_jit + a_i + g_t + u_it
//
// with a_i ~ N(0, EntityEffectSD^2), g_t ~ N(0, CommonShockSD^2) and
// u_it an AR(1) process with coefficient ARRho and innovation sd NoiseSD.
type PanelConfig struct {
	Entities int
	Periods  int
	Seed     int64

	Outcome    string
	Covariates []string
	Beta       []float64
	Intercept  float64

	NoiseSD float64
	// ARRho is the within-entity serial correlation of the idiosyncratic error.
	ARRho float64
	// EntityEffectSD scales the time-invariant entity effect a_i.
	EntityEffectSD float64
	// EffectIntoCovariate leaks a_i into the first covariate, making the
	// entity effect correlated with the regressors (fixed-effects territory).
	EffectIntoCovariate float64
	// CommonShockSD scales a per-period shock shared by all entities,
	// inducing cross-sectional dependence.
	CommonShockSD float64
	// CovariateCommonShockSD adds an independent per-period shock, shared by
	// all entities, to every covariate. Together with CommonShockSD this
	// makes naive standard errors understate the true sampling variance.
	CovariateCommonShockSD float64
}

// Generate builds the synthetic panel. It panics on a malformed config since
// it is only ever called from tests.
func Generate(cfg PanelConfig) *panel.Frame {
	if len(cfg.Beta) != len(cfg.Covariates) {
		panic(fmt.Sprintf("testkit: %d betas for %d covariates", len(cfg.Beta), len(cfg.Covariates)))
	}
	if cfg.Entities < 2 || cfg.Periods < 2 {
		panic("testkit: need at least 2 entities and 2 periods")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	entityEffects := make([]float64, cfg.Entities)
	for i := range entityEffects {
		entityEffects[i] = rng.NormFloat64() * cfg.EntityEffectSD
	}
	commonShocks := make([]float64, cfg.Periods)
	for t := range commonShocks {
		commonShocks[t] = rng.NormFloat64() * cfg.CommonShockSD
	}
	covariateShocks := make([][]float64, len(cfg.Covariates))
	for j := range covariateShocks {
		covariateShocks[j] = make([]float64, cfg.Periods)
		for t := range covariateShocks[j] {
			covariateShocks[j][t] = rng.NormFloat64() * cfg.CovariateCommonShockSD
		}
	}

	records := make([]panel.Record, 0, cfg.Entities*cfg.Periods)
	for i := 0; i < cfg.Entities; i++ {
		entity := panel.EntityID(fmt.Sprintf("MUN%03d", i+1))

		// Stationary AR(1) start for the idiosyncratic error.
		u := rng.NormFloat64() * cfg.NoiseSD
		if cfg.ARRho != 0 {
			u /= math.Sqrt(1 - cfg.ARRho*cfg.ARRho)
		}

		for t := 0; t < cfg.Periods; t++ {
			if t > 0 {
				u = cfg.ARRho*u + rng.NormFloat64()*cfg.NoiseSD
			}

			values := make(map[string]float64, len(cfg.Covariates)+1)
			y := cfg.Intercept + entityEffects[i] + commonShocks[t] + u
			for j, name := range cfg.Covariates {
				x := rng.NormFloat64() + covariateShocks[j][t]
				if j == 0 {
					x += cfg.EffectIntoCovariate * entityEffects[i]
				}
				values[name] = x
				y += cfg.Beta[j] * x
			}
			values[cfg.Outcome] = y

			records = append(records, panel.Record{
				Entity: entity,
				Year:   2010 + t,
				Values: values,
			})
		}
	}

	columns := append([]string{cfg.Outcome}, cfg.Covariates...)
	frame, err := panel.NewFrame(records, columns)
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
	return frame
}
