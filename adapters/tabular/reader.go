// Package tabular loads the raw municipal dataset into a prepared panel
// frame. Preparation is conservative: a row missing a value in any column
// referenced anywhere in the pipeline is dropped whole, never carried
// partially.
package tabular

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sanepanel/domain/panel"
	"sanepanel/internal/errors"
)

// Contract is the dataset column contract. Column names are contractual:
// absence of any of them is a load-time failure.
type Contract struct {
	EntityCol string
	YearCol   string
	// Columns are every numeric column the pipeline references, outcomes
	// and covariates alike.
	Columns []string
}

// Reader handles reading Excel and CSV panel files.
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	contract Contract
}

// NewReader creates a reader for the file; the extension picks the format.
func NewReader(filePath string, contract Contract) *Reader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &Reader{filePath: filePath, fileType: fileType, contract: contract}
}

// Read loads the file, validates the column contract, drops incomplete rows
// and returns the indexed frame. Duplicate (entity, year) keys fail.
func (r *Reader) Read() (*panel.Frame, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.MalformedInput(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, errors.MalformedInput(fmt.Sprintf("unsupported file type: %s", r.fileType))
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, errors.MalformedInput("input must have at least a header row and one data row")
	}
	return r.prepare(rows)
}

func (r *Reader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open CSV file %s", r.filePath)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.MalformedInput(fmt.Sprintf("failed to read CSV file: %v", err))
	}
	log.Printf("[Reader] CSV file read (%d rows)", len(rows))
	return rows, nil
}

func (r *Reader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Excel file %s", r.filePath)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.MalformedInput(fmt.Sprintf("failed to read sheet %s: %v", sheet, err))
	}
	log.Printf("[Reader] Excel sheet %s read (%d rows)", sheet, len(rows))
	return rows, nil
}

// prepare maps header positions, drops incomplete rows and builds the frame.
func (r *Reader) prepare(rows [][]string) (*panel.Frame, error) {
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}

	required := append([]string{r.contract.EntityCol, r.contract.YearCol}, r.contract.Columns...)
	var missing []string
	for _, col := range required {
		if _, ok := pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MalformedInput(fmt.Sprintf("required columns absent from input: %s", strings.Join(missing, ", ")))
	}

	var records []panel.Record
	dropped := 0
	for _, row := range rows[1:] {
		rec, ok := r.parseRow(row, pos)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	log.Printf("[Reader] prepared %d observations (%d incomplete rows dropped)", len(records), dropped)

	frame, err := panel.NewFrame(records, r.contract.Columns)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// parseRow extracts one record; ok is false when any referenced field is
// missing or unparseable, in which case the whole row is excluded.
func (r *Reader) parseRow(row []string, pos map[string]int) (panel.Record, bool) {
	cell := func(col string) string {
		i := pos[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	entity := cell(r.contract.EntityCol)
	if entity == "" {
		return panel.Record{}, false
	}
	year, err := strconv.Atoi(cell(r.contract.YearCol))
	if err != nil {
		return panel.Record{}, false
	}

	values := make(map[string]float64, len(r.contract.Columns))
	for _, col := range r.contract.Columns {
		raw := cell(col)
		if raw == "" {
			return panel.Record{}, false
		}
		v, err := parseNumber(raw)
		if err != nil {
			return panel.Record{}, false
		}
		values[col] = v
	}

	return panel.Record{
		Entity: panel.EntityID(entity),
		Year:   year,
		Values: values,
	}, true
}

// parseNumber accepts both dot and Brazilian comma decimal separators.
func parseNumber(raw string) (float64, error) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, nil
	}
	normalized := strings.ReplaceAll(strings.ReplaceAll(raw, ".", ""), ",", ".")
	return strconv.ParseFloat(normalized, 64)
}
