// Package stepwise performs bidirectional covariate selection by AIC on an
// entity-indicator (LSDV) regression. The indicator regression and the
// within estimator agree on the non-entity coefficients, so selection over
// it is selection over the fixed-effects model. Entity indicators and the
// intercept are scaffolding, never candidates: terms are tagged, the search
// only moves substantive covariates, and the reduced set is recovered by a
// structural filter rather than name matching.
package stepwise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal/errors"
)

// improvementTol is the minimum AIC gain for a move to be accepted.
const improvementTol = 1e-8

// Selector is a stateless stepwise covariate selector.
type Selector struct{}

// NewSelector creates the selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Select runs the bidirectional search: starting from the scaffolding-only
// model, at each step it evaluates adding one unused covariate or dropping
// one included covariate and accepts the single move with the best AIC
// improvement, stopping when no move improves.
func (s *Selector) Select(frame *panel.Frame, outcome string, covariates []string) (econ.Selection, error) {
	if !frame.HasColumn(outcome) {
		return econ.Selection{}, errors.MalformedInput(fmt.Sprintf("outcome column %s is not part of the panel", outcome))
	}
	if len(covariates) == 0 {
		return econ.Selection{}, errors.NoCovariatesSelected("selection started with an empty covariate pool")
	}
	for _, c := range covariates {
		if !frame.HasColumn(c) {
			return econ.Selection{}, errors.MalformedInput(fmt.Sprintf("covariate column %s is not part of the panel", c))
		}
	}

	y, err := frame.Vector(outcome)
	if err != nil {
		return econ.Selection{}, err
	}
	cols := make(map[string][]float64, len(covariates))
	for _, c := range covariates {
		v, err := frame.Vector(c)
		if err != nil {
			return econ.Selection{}, err
		}
		cols[c] = v
	}

	included := make(map[string]bool, len(covariates))
	current, err := s.aic(frame, y, cols, covariates, included)
	if err != nil {
		return econ.Selection{}, errors.Wrap(err, "scaffolding-only model could not be fit")
	}

	var trail []econ.SelectionStep
	for {
		bestAIC := current
		bestName := ""
		bestAction := ""

		for _, c := range covariates {
			action := "add"
			if included[c] {
				action = "drop"
			}
			included[c] = !included[c]
			candidate, err := s.aic(frame, y, cols, covariates, included)
			included[c] = !included[c]
			if err != nil {
				// Singular or degenerate candidate designs are not moves.
				continue
			}
			if candidate < bestAIC-improvementTol {
				bestAIC = candidate
				bestName = c
				bestAction = action
			}
		}

		if bestName == "" {
			break
		}
		included[bestName] = !included[bestName]
		current = bestAIC
		trail = append(trail, econ.SelectionStep{
			Action: bestAction,
			Term:   panel.Covariate(bestName),
			AIC:    bestAIC,
		})
	}

	// Structural filter: only covariate terms survive into the reduced set.
	reduced := make([]string, 0, len(covariates))
	for _, c := range covariates {
		if included[c] {
			reduced = append(reduced, c)
		}
	}
	if len(reduced) == 0 {
		return econ.Selection{}, errors.NoCovariatesSelected(
			fmt.Sprintf("stepwise search eliminated every covariate for %s", outcome))
	}

	return econ.Selection{
		Outcome:    outcome,
		Covariates: reduced,
		FinalAIC:   current,
		Trail:      trail,
	}, nil
}

// aic fits the LSDV model with the given included covariates and returns the
// information criterion n*ln(RSS/n) + 2*(k+1).
func (s *Selector) aic(frame *panel.Frame, y []float64, cols map[string][]float64, order []string, included map[string]bool) (float64, error) {
	entities := frame.Entities()
	n := frame.Len()

	active := make([]string, 0, len(order))
	for _, c := range order {
		if included[c] {
			active = append(active, c)
		}
	}

	// intercept + covariates + one indicator per entity beyond the first
	k := 1 + len(active) + len(entities) - 1
	if n <= k {
		return 0, errors.InsufficientData("LSDV design has more columns than observations")
	}

	entityCol := make(map[panel.EntityID]int, len(entities)-1)
	for gi, entity := range entities[1:] {
		entityCol[entity] = 1 + len(active) + gi
	}

	X := mat.NewDense(n, k, nil)
	rowEntities := frame.RowEntities()
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, c := range active {
			X.Set(i, j+1, cols[c][i])
		}
		if col, ok := entityCol[rowEntities[i]]; ok {
			X.Set(i, col, 1)
		}
	}

	rss, err := residualSS(X, y)
	if err != nil {
		return 0, err
	}
	if rss < 1e-12 {
		rss = 1e-12
	}
	return float64(n)*math.Log(rss/float64(n)) + 2*float64(k+1), nil
}

// residualSS solves the least-squares problem and returns the residual sum
// of squares.
func residualSS(X *mat.Dense, y []float64) (float64, error) {
	n, k := X.Dims()
	yVec := mat.NewDense(n, 1, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(X)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, yVec); err != nil {
		return 0, errors.SingularDesign("LSDV design is rank deficient")
	}

	rss := 0.0
	for i := 0; i < n; i++ {
		f := 0.0
		for j := 0; j < k; j++ {
			f += X.At(i, j) * beta.At(j, 0)
		}
		d := y[i] - f
		rss += d * d
	}
	return rss, nil
}
