// Package report renders provider reports for terminal comparison and
// persists them in a stable line-delimited form.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vecbench/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderTable formats one row per provider for side-by-side comparison.
func RenderTable(reports []domain.ProviderReport) string {
	headers := []string{"PROVIDER", "MAP", "P50 MS", "P95 MS", "COST USD", "INGESTED", "QUERIES", "EXCLUDED"}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.ProviderName,
			fmt.Sprintf("%.4f", r.MAP),
			fmt.Sprintf("%.1f", r.P50LatencyMs),
			fmt.Sprintf("%.1f", r.P95LatencyMs),
			fmt.Sprintf("%.2f", r.EstimatedCostUSD),
			fmt.Sprintf("%d/%d", r.RecordsIngested, r.RecordsAttempted),
			fmt.Sprintf("%d", r.QueriesEvaluated),
			fmt.Sprintf("%d", len(r.ExcludedQueryIDs)),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(headerStyle.Render(cellStyle.Render(pad(h, widths[i]))))
	}
	for _, row := range rows {
		b.WriteString("\n")
		for i, cell := range row {
			b.WriteString(cellStyle.Render(pad(cell, widths[i])))
		}
	}
	return frameStyle.Render(b.String())
}

// RenderDetail formats one report in full, excluded queries included.
func RenderDetail(r domain.ProviderReport) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(r.ProviderName) + "\n\n")
	fmt.Fprintf(&b, "MAP              %.4f\n", r.MAP)
	fmt.Fprintf(&b, "p50 latency      %.1f ms\n", r.P50LatencyMs)
	fmt.Fprintf(&b, "p95 latency      %.1f ms\n", r.P95LatencyMs)
	fmt.Fprintf(&b, "estimated cost   $%.2f\n", r.EstimatedCostUSD)
	fmt.Fprintf(&b, "records          %d of %d ingested\n", r.RecordsIngested, r.RecordsAttempted)
	fmt.Fprintf(&b, "queries          %d evaluated, %d failed\n", r.QueriesEvaluated, r.FailedQueries)
	if len(r.ExcludedQueryIDs) > 0 {
		b.WriteString(dimStyle.Render("excluded: "+strings.Join(r.ExcludedQueryIDs, ", ")) + "\n")
	}
	return b.String()
}

// WriteJSONL persists reports one JSON object per line, suitable for
// tabular comparison across runs.
func WriteJSONL(path string, reports []domain.ProviderReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadJSONL loads previously written reports.
func ReadJSONL(path string) ([]domain.ProviderReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var reports []domain.ProviderReport
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r domain.ProviderReport
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, sc.Err()
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
