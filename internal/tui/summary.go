package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"squish/internal/processor"
	"squish/pkg/imgutil"
)

type SummaryRow struct {
	Label string
	Value string
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// ReportRows summarizes a finished batch for RenderSummary.
func ReportRows(report processor.BatchReport) []SummaryRow {
	s := report.Summary
	rows := []SummaryRow{
		{Label: "Total files", Value: fmt.Sprintf("%d", s.Total)},
		{Label: "Copied (already small)", Value: fmt.Sprintf("%d", s.Copied)},
		{Label: "Compressed", Value: fmt.Sprintf("%d", s.Compressed)},
		{Label: "Target missed", Value: fmt.Sprintf("%d", s.TargetMissed)},
		{Label: "Failed", Value: fmt.Sprintf("%d", s.Failed)},
		{Label: "Skipped", Value: fmt.Sprintf("%d", s.Skipped)},
		{Label: "Size before", Value: imgutil.HumanBytes(s.BytesBefore)},
		{Label: "Size after", Value: imgutil.HumanBytes(s.BytesAfter)},
		{Label: "Elapsed", Value: report.Finished.Sub(report.Started).Round(10 * time.Millisecond).String()},
	}
	if report.Cancelled {
		rows = append(rows, SummaryRow{Label: "Status", Value: "cancelled"})
	}
	return rows
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
)
