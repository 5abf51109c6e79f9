// Package diagnostics holds the residual test battery run against a
// fixed-effects fit, plus the Hausman specification test. Each test lives in
// its own file behind the ResidualTest interface; the suite fans the
// independent tests out concurrently and reports them in a fixed order.
package diagnostics

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sanepanel/domain/econ"
	"sanepanel/domain/panel"
	"sanepanel/internal/errors"
)

// ResidualTest is one diagnostic against a fitted model's residual structure.
// Implementations never mutate the fit.
type ResidualTest interface {
	Name() string
	Run(frame *panel.Frame, fit *econ.FitResult, alpha float64) (econ.TestResult, error)
}

// Suite bundles the heteroscedasticity, serial-correlation and
// cross-sectional-dependence tests.
type Suite struct {
	tests []ResidualTest
}

// NewSuite creates the standard three-test battery.
func NewSuite() *Suite {
	return &Suite{
		tests: []ResidualTest{
			NewBreuschPagan(),
			NewWooldridge(),
			NewPesaranCD(),
		},
	}
}

// Run executes every test against the fixed-effects fit. Tests are
// independent and read-only, so they run concurrently; results keep the
// suite's declared order.
func (s *Suite) Run(ctx context.Context, frame *panel.Frame, fit *econ.FitResult, alpha float64) ([]econ.TestResult, error) {
	if fit.Spec.Effect != econ.EffectFixed {
		return nil, errors.IncompatibleModels("diagnostic suite requires a fixed-effects fit")
	}

	results := make([]econ.TestResult, len(s.tests))
	g, _ := errgroup.WithContext(ctx)
	for i, test := range s.tests {
		g.Go(func() error {
			res, err := test.Run(frame, fit, alpha)
			if err != nil {
				return errors.Wrapf(err, "%s failed", test.Name())
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Names lists the suite's tests in report order.
func (s *Suite) Names() []string {
	out := make([]string, len(s.tests))
	for i, t := range s.tests {
		out[i] = t.Name()
	}
	return out
}
