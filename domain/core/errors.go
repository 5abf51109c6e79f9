package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrMalformedInput covers missing required columns, duplicate
	// (entity, year) keys and unparseable numeric cells.
	ErrMalformedInput = errors.New("malformed input")

	// ErrSingularDesign signals a collinear or rank-deficient design matrix,
	// including covariates constant within every entity after demeaning.
	ErrSingularDesign = errors.New("singular design matrix")

	// ErrIncompatibleModels signals a model comparison across mismatched
	// outcomes or covariate sets.
	ErrIncompatibleModels = errors.New("incompatible models")

	// ErrInsufficientData signals too few time periods or observations for
	// a test or estimator.
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// ErrNoCovariatesSelected signals a degenerate selection result with
	// every substantive covariate eliminated.
	ErrNoCovariatesSelected = errors.New("no covariates selected")
)

// Error constructors with context

func NewMalformedInputError(detail string) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, detail)
}

func NewSingularDesignError(detail string) error {
	return fmt.Errorf("%w: %s", ErrSingularDesign, detail)
}

func NewIncompatibleModelsError(detail string) error {
	return fmt.Errorf("%w: %s", ErrIncompatibleModels, detail)
}

func NewInsufficientDataError(detail string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, detail)
}

// Error checking helpers

func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

func IsSingularDesign(err error) bool {
	return errors.Is(err, ErrSingularDesign)
}

func IsIncompatibleModels(err error) bool {
	return errors.Is(err, ErrIncompatibleModels)
}

func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsNoCovariatesSelected(err error) bool {
	return errors.Is(err, ErrNoCovariatesSelected)
}
