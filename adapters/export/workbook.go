// Package export writes run results to disk: one CSV per table plus a single
// results.xlsx workbook with one sheet per table.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"sanepanel/domain/econ"
	"sanepanel/internal"
	"sanepanel/internal/errors"
)

// Exporter persists run reports under a target directory.
type Exporter struct {
	dir    string
	logger *internal.Logger
}

// NewExporter creates an exporter rooted at dir. The directory is created on
// first export.
func NewExporter(dir string, logger *internal.Logger) *Exporter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Exporter{dir: dir, logger: logger}
}

// table is one named grid of cells; the first row is the header.
type table struct {
	name string
	rows [][]string
}

// Export writes every table of the report as CSV and bundles them into
// results.xlsx.
func (e *Exporter) Export(report *econ.RunReport) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return errors.ExportFailed(fmt.Sprintf("create export dir %s", e.dir), err)
	}

	tables := buildTables(report)
	for _, t := range tables {
		path := filepath.Join(e.dir, t.name+".csv")
		if err := writeCSV(path, t.rows); err != nil {
			return errors.ExportFailed(fmt.Sprintf("write %s", path), err)
		}
	}

	workbook := filepath.Join(e.dir, "results.xlsx")
	if err := writeWorkbook(workbook, tables); err != nil {
		return errors.ExportFailed(fmt.Sprintf("write %s", workbook), err)
	}

	e.logger.Info("exported %d tables to %s", len(tables), e.dir)
	return nil
}

func buildTables(report *econ.RunReport) []table {
	tables := []table{
		manifestTable(report.Manifest),
		summariesTable(report.Exploration),
		correlationTable(report.Exploration),
	}
	for _, a := range report.Outcomes {
		tables = append(tables, outcomeTables(a)...)
	}
	return tables
}

func manifestTable(m econ.RunManifest) table {
	rows := [][]string{
		{"key", "value"},
		{"run_id", m.RunID.String()},
		{"started_at", m.StartedAt.Time().Format("2006-01-02T15:04:05Z07:00")},
		{"runtime_ms", strconv.FormatInt(m.RuntimeMs, 10)},
		{"observations", strconv.Itoa(m.Observations)},
		{"municipalities", strconv.Itoa(m.Entities)},
		{"years", strconv.Itoa(m.Periods)},
	}
	for _, outcome := range m.Outcomes {
		status := "ok"
		if msg, failed := m.Failures[outcome]; failed {
			status = "failed: " + msg
		}
		rows = append(rows, []string{"outcome_" + outcome, status})
	}
	return table{name: "manifest", rows: rows}
}

func summariesTable(exp econ.Exploration) table {
	rows := [][]string{{"variable", "n", "mean", "sd", "min", "median", "max"}}
	for _, s := range exp.Summaries {
		rows = append(rows, []string{
			s.Name, strconv.Itoa(s.N),
			num(s.Mean), num(s.StdDev), num(s.Min), num(s.Median), num(s.Max),
		})
	}
	return table{name: "summaries", rows: rows}
}

func correlationTable(exp econ.Exploration) table {
	header := append([]string{""}, exp.CorrOrder...)
	rows := [][]string{header}
	for i, name := range exp.CorrOrder {
		row := []string{name}
		for j := range exp.CorrOrder {
			row = append(row, num(exp.Corr[i][j]))
		}
		rows = append(rows, row)
	}
	return table{name: "correlations", rows: rows}
}

func outcomeTables(a econ.OutcomeAnalysis) []table {
	prefix := a.Outcome + "_"
	tables := []table{
		fitTable(prefix+"pooled", a.Pooled),
		fitTable(prefix+"fixed", a.Fixed),
		fitTable(prefix+"random", a.Random),
		testsTable(prefix, a),
		robustTable(prefix+"dk_full", a.RobustFull),
		selectionTable(prefix, a.Selection),
		fitTable(prefix+"final", a.ReducedFixed),
		robustTable(prefix+"dk_final", a.RobustReduced),
	}
	return tables
}

func fitTable(name string, fit *econ.FitResult) table {
	rows := [][]string{{"term", "coef", "se", "t", "p"}}
	if fit != nil {
		for _, c := range fit.Coeffs {
			rows = append(rows, coefRow(c))
		}
		rows = append(rows,
			[]string{"", "", "", "", ""},
			[]string{"n", strconv.Itoa(fit.N), "r2", num(fit.R2), ""},
		)
	}
	return table{name: name, rows: rows}
}

func testsTable(prefix string, a econ.OutcomeAnalysis) table {
	rows := [][]string{{"test", "statistic", "df", "p_value", "rejected"}}
	h := a.Hausman.Result
	rows = append(rows, []string{
		h.Name, num(h.Statistic), strconv.Itoa(h.DF), num(h.PValue),
		strconv.FormatBool(h.Rejected),
	})
	for _, t := range a.Diagnostics {
		rows = append(rows, []string{
			t.Name, num(t.Statistic), strconv.Itoa(t.DF), num(t.PValue),
			strconv.FormatBool(t.Rejected),
		})
	}
	rows = append(rows, []string{"hausman_recommends", string(a.Hausman.Recommends), "", "", ""})
	return table{name: prefix + "tests", rows: rows}
}

func robustTable(name string, t econ.CoefficientTable) table {
	rows := [][]string{{"term", "coef", "se", "t", "p"}}
	for _, c := range t.Rows {
		rows = append(rows, coefRow(c))
	}
	rows = append(rows,
		[]string{"", "", "", "", ""},
		[]string{"kernel", t.Kernel, "lags", strconv.Itoa(t.Lags), ""},
	)
	return table{name: name, rows: rows}
}

func selectionTable(prefix string, sel econ.Selection) table {
	rows := [][]string{{"step", "action", "term", "aic"}}
	for i, step := range sel.Trail {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), step.Action, step.Term.Name, num(step.AIC),
		})
	}
	rows = append(rows, []string{"", "final", "", num(sel.FinalAIC)})
	return table{name: prefix + "selection", rows: rows}
}

func coefRow(c econ.Coefficient) []string {
	return []string{c.Term.Name, num(c.Estimate), num(c.StdErr), num(c.TStat), num(c.PValue)}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeWorkbook(path string, tables []table) error {
	wb := excelize.NewFile()
	defer wb.Close()

	for i, t := range tables {
		// Sheet names are capped at 31 characters by the format.
		name := t.name
		if len(name) > 31 {
			name = name[:31]
		}
		if i == 0 {
			if err := wb.SetSheetName(wb.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := wb.NewSheet(name); err != nil {
			return err
		}
		for r, row := range t.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := wb.SetSheetRow(name, cell, &values); err != nil {
				return err
			}
		}
	}
	return wb.SaveAs(path)
}
