package panel

import "fmt"

// EntityID identifies a municipality in the panel.
type EntityID string

func (e EntityID) String() string { return string(e) }

// ObservationKey uniquely identifies one panel observation.
// Invariant: unique within a Frame after preparation.
type ObservationKey struct {
	Entity EntityID
	Year   int
}

func (k ObservationKey) String() string {
	return fmt.Sprintf("%s@%d", k.Entity, k.Year)
}

// Record is one fully-observed panel observation. Values holds every numeric
// column referenced anywhere in the pipeline; rows with a missing value in
// any of them are dropped at load time, never carried as partial records.
type Record struct {
	Entity EntityID
	Year   int
	Values map[string]float64
}

// Key returns the record's panel index key.
func (r Record) Key() ObservationKey {
	return ObservationKey{Entity: r.Entity, Year: r.Year}
}

// TermKind distinguishes substantive covariates from the scaffolding terms of
// an entity-indicator regression. Selection and reporting filter on the kind
// structurally instead of matching term names.
type TermKind int

const (
	// TermCovariate is a substantive explanatory variable.
	TermCovariate TermKind = iota
	// TermIntercept is the constant term.
	TermIntercept
	// TermEntityIndicator is one entity dummy in an LSDV design.
	TermEntityIndicator
)

func (k TermKind) String() string {
	switch k {
	case TermCovariate:
		return "covariate"
	case TermIntercept:
		return "intercept"
	case TermEntityIndicator:
		return "entity_indicator"
	default:
		return "unknown"
	}
}

// Term is one column of a regression design, tagged with its role.
// Entity is set only for TermEntityIndicator.
type Term struct {
	Name   string
	Kind   TermKind
	Entity EntityID
}

// Intercept returns the constant term.
func Intercept() Term {
	return Term{Name: "const", Kind: TermIntercept}
}

// Covariate returns a substantive covariate term.
func Covariate(name string) Term {
	return Term{Name: name, Kind: TermCovariate}
}

// EntityIndicator returns the indicator term for one entity.
func EntityIndicator(entity EntityID) Term {
	return Term{Name: "entity[" + string(entity) + "]", Kind: TermEntityIndicator, Entity: entity}
}
