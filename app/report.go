package app

import (
	"fmt"
	"strings"

	"sanepanel/domain/econ"
)

// RenderReport formats a run report as a plain-text summary, one section per
// outcome. Output is deterministic for a given report.
func RenderReport(report *econ.RunReport) string {
	var b strings.Builder

	m := report.Manifest
	fmt.Fprintf(&b, "Panel analysis run %s\n", m.RunID)
	fmt.Fprintf(&b, "  %d observations, %d municipalities, %d years, %d ms\n",
		m.Observations, m.Entities, m.Periods, m.RuntimeMs)
	if len(m.Failures) > 0 {
		for _, outcome := range m.Outcomes {
			if msg, ok := m.Failures[outcome]; ok {
				fmt.Fprintf(&b, "  FAILED %s: %s\n", outcome, msg)
			}
		}
	}
	b.WriteString("\n")

	renderExploration(&b, report.Exploration)
	for _, analysis := range report.Outcomes {
		renderOutcome(&b, analysis)
	}
	return b.String()
}

// RenderExploration formats just the data profile, for inspection runs.
func RenderExploration(exp econ.Exploration) string {
	var b strings.Builder
	renderExploration(&b, exp)
	return b.String()
}

func renderExploration(b *strings.Builder, exp econ.Exploration) {
	b.WriteString("== Variable summaries ==\n")
	fmt.Fprintf(b, "%-8s %8s %12s %12s %12s %12s %12s\n",
		"var", "n", "mean", "sd", "min", "median", "max")
	for _, s := range exp.Summaries {
		fmt.Fprintf(b, "%-8s %8d %12.4f %12.4f %12.4f %12.4f %12.4f\n",
			s.Name, s.N, s.Mean, s.StdDev, s.Min, s.Median, s.Max)
	}
	b.WriteString("\n== Correlations ==\n")
	fmt.Fprintf(b, "%-8s", "")
	for _, name := range exp.CorrOrder {
		fmt.Fprintf(b, " %8s", name)
	}
	b.WriteString("\n")
	for i, name := range exp.CorrOrder {
		fmt.Fprintf(b, "%-8s", name)
		for j := range exp.CorrOrder {
			fmt.Fprintf(b, " %8.3f", exp.Corr[i][j])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderOutcome(b *strings.Builder, a econ.OutcomeAnalysis) {
	fmt.Fprintf(b, "==== Outcome %s ====\n\n", a.Outcome)

	renderFit(b, "Pooled OLS", a.Pooled)
	renderFit(b, "Fixed effects (within)", a.Fixed)
	renderFit(b, "Random effects (Swamy-Arora)", a.Random)

	h := a.Hausman.Result
	fmt.Fprintf(b, "Hausman: stat=%.4f df=%d p=%.4g -> %s",
		h.Statistic, h.DF, h.PValue, a.Hausman.Recommends)
	if a.HausmanApplied {
		b.WriteString(" (applied to final model)")
	}
	b.WriteString("\n")
	if h.Detail != "" {
		fmt.Fprintf(b, "  note: %s\n", h.Detail)
	}
	b.WriteString("\n")

	b.WriteString("Residual diagnostics (fixed effects):\n")
	for _, t := range a.Diagnostics {
		verdict := "not rejected"
		if t.Rejected {
			verdict = "REJECTED"
		}
		fmt.Fprintf(b, "  %-28s stat=%10.4f p=%.4g  H0 %s\n", t.Name, t.Statistic, t.PValue, verdict)
	}
	b.WriteString("\n")

	renderRobust(b, "Driscoll-Kraay, full model", a.RobustFull)

	fmt.Fprintf(b, "Stepwise selection: kept %d covariates (AIC=%.4f)\n",
		len(a.Selection.Covariates), a.Selection.FinalAIC)
	for _, step := range a.Selection.Trail {
		fmt.Fprintf(b, "  %-6s %-8s AIC=%.4f\n", step.Action, step.Term.Name, step.AIC)
	}
	b.WriteString("\n")

	renderFit(b, fmt.Sprintf("Final model (%s, reduced)", a.FinalEffect), a.ReducedFixed)
	renderRobust(b, "Driscoll-Kraay, reduced model", a.RobustReduced)
}

func renderFit(b *strings.Builder, title string, fit *econ.FitResult) {
	if fit == nil {
		return
	}
	fmt.Fprintf(b, "%s: n=%d R2=%.4f sigma2=%.6f df=%d\n", title, fit.N, fit.R2, fit.Sigma2, fit.DF)
	fmt.Fprintf(b, "  %-10s %12s %12s %10s %10s\n", "term", "coef", "se", "t", "p")
	for _, c := range fit.Coeffs {
		fmt.Fprintf(b, "  %-10s %12.6f %12.6f %10.4f %10.4g\n",
			c.Term.Name, c.Estimate, c.StdErr, c.TStat, c.PValue)
	}
	b.WriteString("\n")
}

func renderRobust(b *strings.Builder, title string, table econ.CoefficientTable) {
	fmt.Fprintf(b, "%s (kernel=%s, lags=%d):\n", title, table.Kernel, table.Lags)
	fmt.Fprintf(b, "  %-10s %12s %12s %10s %10s\n", "term", "coef", "se", "t", "p")
	for _, c := range table.Rows {
		fmt.Fprintf(b, "  %-10s %12.6f %12.6f %10.4f %10.4g\n",
			c.Term.Name, c.Estimate, c.StdErr, c.TStat, c.PValue)
	}
	b.WriteString("\n")
}
