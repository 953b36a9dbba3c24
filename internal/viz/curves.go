// Package viz renders training curves and forecasts, as asciigraph panels
// for the terminal and as PNG files for reports.
package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	graphWidth  = 72
	graphHeight = 12
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Curve renders one series as a captioned terminal graph.
func Curve(title string, series []float64) string {
	if len(series) < 2 {
		return mutedStyle.Render(title + ": not enough points")
	}
	graph := asciigraph.Plot(series,
		asciigraph.Width(graphWidth),
		asciigraph.Height(graphHeight),
		asciigraph.Caption(title),
	)
	return graphStyle.Render(graph)
}

// LossPanel renders the train and validation loss curves side by side with
// their latest values.
func LossPanel(train, val []float64) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("training loss"))
	b.WriteString("\n")
	b.WriteString(Curve("train mse", train))
	b.WriteString("\n")
	b.WriteString(Curve("val mse", val))
	b.WriteString("\n")
	if len(train) > 0 {
		b.WriteString(row("train", train[len(train)-1]))
	}
	if len(val) > 0 {
		b.WriteString(row("val", val[len(val)-1]))
	}
	return b.String()
}

// NFEPanel renders the per-epoch function evaluation counts.
func NFEPanel(nfes []float64) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("function evaluations"))
	b.WriteString("\n")
	b.WriteString(Curve("nfe per epoch", nfes))
	return b.String()
}

// SummaryTable renders per-model mean and standard deviation scores.
func SummaryTable(labels []string, means, stds map[string]float64) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("test RMSE"))
	b.WriteString("\n")
	for _, label := range labels {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.6f ± %.6f", means[label], stds[label])))
		b.WriteString("\n")
	}
	return b.String()
}

func row(label string, v float64) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf("%.6f", v)) + "\n"
}
