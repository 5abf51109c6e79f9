package panel

import (
	"fmt"
	"sort"

	"sanepanel/domain/core"
)

// Frame is the prepared panel: complete records indexed by (entity, year),
// immutable once constructed. Records are stored sorted by entity then year
// so every downstream matrix build is deterministic.
type Frame struct {
	columns    []string
	records    []Record
	entities   []EntityID
	years      []int
	entityRows map[EntityID][]int
}

// NewFrame validates and indexes a set of prepared records. Every record must
// carry a value for every column, and (entity, year) keys must be unique.
func NewFrame(records []Record, columns []string) (*Frame, error) {
	if len(records) == 0 {
		return nil, core.NewMalformedInputError("no complete observations remain after preparation")
	}
	if len(columns) == 0 {
		return nil, core.NewMalformedInputError("no columns declared for the panel")
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Entity != sorted[j].Entity {
			return sorted[i].Entity < sorted[j].Entity
		}
		return sorted[i].Year < sorted[j].Year
	})

	seen := make(map[ObservationKey]bool, len(sorted))
	entityRows := make(map[EntityID][]int)
	yearSet := make(map[int]bool)
	for i, rec := range sorted {
		key := rec.Key()
		if seen[key] {
			return nil, core.NewMalformedInputError(fmt.Sprintf("duplicate panel key %s", key))
		}
		seen[key] = true
		for _, col := range columns {
			if _, ok := rec.Values[col]; !ok {
				return nil, core.NewMalformedInputError(fmt.Sprintf("observation %s missing column %s", key, col))
			}
		}
		entityRows[rec.Entity] = append(entityRows[rec.Entity], i)
		yearSet[rec.Year] = true
	}

	entities := make([]EntityID, 0, len(entityRows))
	for e := range entityRows {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Frame{
		columns:    cols,
		records:    sorted,
		entities:   entities,
		years:      years,
		entityRows: entityRows,
	}, nil
}

// Len returns the number of observations.
func (f *Frame) Len() int { return len(f.records) }

// NumEntities returns the number of distinct entities.
func (f *Frame) NumEntities() int { return len(f.entities) }

// NumPeriods returns the number of distinct years across the panel.
func (f *Frame) NumPeriods() int { return len(f.years) }

// Entities returns the distinct entity identifiers in sorted order.
func (f *Frame) Entities() []EntityID {
	out := make([]EntityID, len(f.entities))
	copy(out, f.entities)
	return out
}

// Years returns the distinct years in ascending order.
func (f *Frame) Years() []int {
	out := make([]int, len(f.years))
	copy(out, f.years)
	return out
}

// Columns returns the declared column names.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// HasColumn reports whether the frame declares the column.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Record returns the observation at row i in (entity, year) order.
func (f *Frame) Record(i int) Record { return f.records[i] }

// EntityRows returns the row indices belonging to one entity, in year order.
func (f *Frame) EntityRows(entity EntityID) []int {
	rows := f.entityRows[entity]
	out := make([]int, len(rows))
	copy(out, rows)
	return out
}

// Vector extracts one column across all rows in frame order.
func (f *Frame) Vector(col string) ([]float64, error) {
	if !f.HasColumn(col) {
		return nil, core.NewMalformedInputError(fmt.Sprintf("column %s is not part of the panel", col))
	}
	out := make([]float64, len(f.records))
	for i, rec := range f.records {
		out[i] = rec.Values[col]
	}
	return out, nil
}

// Matrix extracts the named columns as row-major data in frame order.
func (f *Frame) Matrix(cols []string) ([][]float64, error) {
	for _, c := range cols {
		if !f.HasColumn(c) {
			return nil, core.NewMalformedInputError(fmt.Sprintf("column %s is not part of the panel", c))
		}
	}
	out := make([][]float64, len(f.records))
	for i, rec := range f.records {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = rec.Values[c]
		}
		out[i] = row
	}
	return out, nil
}

// RowEntities returns the entity of every row in frame order.
func (f *Frame) RowEntities() []EntityID {
	out := make([]EntityID, len(f.records))
	for i, rec := range f.records {
		out[i] = rec.Entity
	}
	return out
}

// RowYears returns the year of every row in frame order.
func (f *Frame) RowYears() []int {
	out := make([]int, len(f.records))
	for i, rec := range f.records {
		out[i] = rec.Year
	}
	return out
}
