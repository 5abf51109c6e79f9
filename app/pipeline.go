// Package app sequences the panel analysis: one parameterized pipeline run
// per outcome variable, identical logic for each, no shared state between
// outcomes beyond the read-only frame.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"sanepanel/adapters/stats/diagnostics"
	"sanepanel/adapters/stats/fitter"
	"sanepanel/adapters/stats/robust"
	"sanepanel/adapters/stats/stepwise"
	"sanepanel/domain/core"
	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal"
	"sanepanel/internal/config"
	"sanepanel/internal/errors"
	"sanepanel/ports"
)

// Pipeline runs the full analysis for every configured outcome.
type Pipeline struct {
	fitter      ports.ModelFitter
	hausman     ports.SpecificationTester
	diagnostics ports.ResidualDiagnostics
	robust      ports.RobustEstimator
	selector    ports.CovariateSelector
	logger      *internal.Logger

	outcomes     []string
	covariates   []string
	alpha        float64
	maxLags      int
	finalEffects string
}

// NewPipeline wires the standard adapters from configuration.
func NewPipeline(cfg *config.Config, logger *internal.Logger) *Pipeline {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Pipeline{
		fitter:       fitter.NewEngine(),
		hausman:      diagnostics.NewHausman(),
		diagnostics:  diagnostics.NewSuite(),
		robust:       robust.NewDriscollKraay(),
		selector:     stepwise.NewSelector(),
		logger:       logger,
		outcomes:     cfg.Data.Outcomes,
		covariates:   cfg.Data.Covariates,
		alpha:        cfg.Model.Alpha,
		maxLags:      cfg.Inference.MaxLags,
		finalEffects: cfg.Model.FinalEffects,
	}
}

// Run executes the pipeline over a prepared frame. Outcomes are logically
// independent: a failure in one is recorded in the manifest and returned,
// but never suppresses the other outcome's results.
func (p *Pipeline) Run(ctx context.Context, frame *panel.Frame) (*econ.RunReport, error) {
	started := time.Now()
	manifest := econ.RunManifest{
		RunID:        core.RunID(core.NewID()),
		StartedAt:    core.NewTimestamp(started),
		Observations: frame.Len(),
		Entities:     frame.NumEntities(),
		Periods:      frame.NumPeriods(),
		Outcomes:     append([]string(nil), p.outcomes...),
		Failures:     make(map[string]string),
	}
	p.logger.Info("run %s: %d observations, %d municipalities, %d years",
		manifest.RunID, frame.Len(), frame.NumEntities(), frame.NumPeriods())

	exploration, err := Explore(frame, append(append([]string(nil), p.outcomes...), p.covariates...), p.logger)
	if err != nil {
		return nil, errors.Wrap(err, "exploration failed")
	}

	report := &econ.RunReport{Exploration: exploration}
	var failures []error
	for _, outcome := range p.outcomes {
		analysis, err := p.analyzeOutcome(ctx, frame, outcome)
		if err != nil {
			p.logger.Error("outcome %s failed [%s]: %v", outcome, errors.GetCode(err), err)
			manifest.Failures[outcome] = err.Error()
			failures = append(failures, fmt.Errorf("outcome %s: %w", outcome, err))
			continue
		}
		report.Outcomes = append(report.Outcomes, analysis)
	}

	manifest.RuntimeMs = time.Since(started).Milliseconds()
	report.Manifest = manifest

	if len(failures) > 0 {
		return report, stderrors.Join(failures...)
	}
	return report, nil
}

// analyzeOutcome runs the full sequence for one outcome variable.
func (p *Pipeline) analyzeOutcome(ctx context.Context, frame *panel.Frame, outcome string) (econ.OutcomeAnalysis, error) {
	analysis := econ.OutcomeAnalysis{Outcome: outcome}

	pooled, err := p.fitter.Fit(frame, econ.Spec{Outcome: outcome, Covariates: p.covariates, Effect: econ.EffectPooled})
	if err != nil {
		return analysis, errors.Wrapf(err, "pooled fit for %s", outcome)
	}
	fixed, err := p.fitter.Fit(frame, econ.Spec{Outcome: outcome, Covariates: p.covariates, Effect: econ.EffectFixed})
	if err != nil {
		return analysis, errors.Wrapf(err, "fixed-effects fit for %s", outcome)
	}
	random, err := p.fitter.Fit(frame, econ.Spec{Outcome: outcome, Covariates: p.covariates, Effect: econ.EffectRandom})
	if err != nil {
		return analysis, errors.Wrapf(err, "random-effects fit for %s", outcome)
	}
	analysis.Pooled, analysis.Fixed, analysis.Random = pooled, fixed, random

	decision, err := p.hausman.Hausman(fixed, random, p.alpha)
	if err != nil {
		return analysis, errors.Wrapf(err, "Hausman test for %s", outcome)
	}
	analysis.Hausman = decision
	p.logger.Info("%s hausman: stat=%.4f p=%.4g recommends %s",
		outcome, decision.Result.Statistic, decision.Result.PValue, decision.Recommends)

	tests, err := p.diagnostics.Run(ctx, frame, fixed, p.alpha)
	if err != nil {
		return analysis, errors.Wrapf(err, "diagnostics for %s", outcome)
	}
	analysis.Diagnostics = tests

	robustFull, err := p.robust.Table(fixed, p.maxLags)
	if err != nil {
		return analysis, errors.Wrapf(err, "robust inference for %s", outcome)
	}
	analysis.RobustFull = robustFull

	selection, err := p.selector.Select(frame, outcome, p.covariates)
	if err != nil {
		return analysis, errors.Wrapf(err, "covariate selection for %s", outcome)
	}
	analysis.Selection = selection
	p.logger.Info("%s selection kept %d of %d covariates", outcome, len(selection.Covariates), len(p.covariates))

	// The final model is fixed effects by construction; FINAL_EFFECTS=auto
	// applies the Hausman recommendation instead of just reporting it.
	finalEffect := econ.EffectFixed
	if p.finalEffects == "auto" {
		finalEffect = decision.Recommends
		analysis.HausmanApplied = true
	}
	analysis.FinalEffect = finalEffect

	reduced, err := p.fitter.Fit(frame, econ.Spec{Outcome: outcome, Covariates: selection.Covariates, Effect: finalEffect})
	if err != nil {
		return analysis, errors.Wrapf(err, "reduced %s fit for %s", finalEffect, outcome)
	}
	analysis.ReducedFixed = reduced

	robustReduced, err := p.robust.Table(reduced, p.maxLags)
	if err != nil {
		return analysis, errors.Wrapf(err, "robust inference on reduced model for %s", outcome)
	}
	analysis.RobustReduced = robustReduced

	return analysis, nil
}

// Explore builds the pre-modeling data profile: per-variable summaries and
// the correlation matrix over the given columns.
func Explore(frame *panel.Frame, order []string, logger *internal.Logger) (econ.Exploration, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	// Columns absent from the frame are skipped here; the per-outcome fits
	// still fail loudly on them.
	present := order[:0:0]
	for _, name := range order {
		if frame.HasColumn(name) {
			present = append(present, name)
		} else {
			logger.Warn("exploration: column %s not in panel, skipping", name)
		}
	}
	order = present

	vectors := make(map[string][]float64, len(order))
	summaries := make([]econ.VariableSummary, 0, len(order))
	for _, name := range order {
		v, err := frame.Vector(name)
		if err != nil {
			return econ.Exploration{}, err
		}
		vectors[name] = v

		m, _ := stats.Mean(v)
		sd, _ := stats.StandardDeviationSample(v)
		lo, _ := stats.Min(v)
		med, _ := stats.Median(v)
		hi, _ := stats.Max(v)
		summaries = append(summaries, econ.VariableSummary{
			Name:   name,
			N:      len(v),
			Mean:   m,
			StdDev: sd,
			Min:    lo,
			Median: med,
			Max:    hi,
		})
	}

	corr := make([][]float64, len(order))
	for i, a := range order {
		corr[i] = make([]float64, len(order))
		for j, b := range order {
			if i == j {
				corr[i][j] = 1
				continue
			}
			r, err := stats.Pearson(vectors[a], vectors[b])
			if err != nil {
				r = 0
			}
			corr[i][j] = r
		}
	}

	return econ.Exploration{
		Summaries: summaries,
		CorrOrder: order,
		Corr:      corr,
	}, nil
}
