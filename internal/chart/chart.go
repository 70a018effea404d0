// Package chart draws aggregated totals in the terminal.
package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
	"github.com/HerrChaos/obsidian-waka-box/internal/timecalc"
)

// Kind names a chart style. The values match the chart_type setting.
type Kind string

const (
	Doughnut  Kind = "doughnut"
	Bar       Kind = "bar"
	Pie       Kind = "pie"
	Radar     Kind = "radar"
	PolarArea Kind = "polarArea"
)

// Options controls what is drawn.
type Options struct {
	Kind       Kind
	Title      string
	ShowLegend bool
	// ShowTotal prints Total above the chart.
	ShowTotal bool
	Total     float64
	Width     int
}

// Renderer renders a labelled numeric series.
type Renderer interface {
	Render(w io.Writer, items []model.Item, opts Options) error
}

// palette cycles through distinguishable ANSI colours.
var palette = []lipgloss.Color{"63", "205", "86", "214", "141", "44", "203", "149", "111", "179"}

// Terminal draws charts with lipgloss. Share-style kinds (doughnut, pie,
// polarArea) become a stacked strip; bar and radar become one bar per item.
type Terminal struct{}

// NewTerminal returns a terminal renderer.
func NewTerminal() *Terminal { return &Terminal{} }

// Render implements Renderer.
func (t *Terminal) Render(w io.Writer, items []model.Item, opts Options) error {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	muted := r.NewStyle().Foreground(lipgloss.Color("243"))

	width := opts.Width
	if width <= 0 {
		width = 60
	}

	var b strings.Builder
	if opts.Title != "" {
		b.WriteString(title.Render(opts.Title))
		b.WriteString("\n")
	}
	if opts.ShowTotal {
		b.WriteString(fmt.Sprintf("Total: %s\n", timecalc.FormatHoursMinutes(opts.Total)))
	}
	if len(items) == 0 {
		b.WriteString(muted.Render("No data"))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	switch opts.Kind {
	case Bar, Radar:
		b.WriteString(bars(r, items, width))
	default:
		b.WriteString(strip(r, items, width))
	}
	if opts.ShowLegend {
		b.WriteString("\n")
		b.WriteString(legend(r, items))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func colorFor(r *lipgloss.Renderer, i int) lipgloss.Style {
	return r.NewStyle().Foreground(palette[i%len(palette)])
}

func bars(r *lipgloss.Renderer, items []model.Item, width int) string {
	labelWidth := 0
	for _, it := range items {
		labelWidth = max(labelWidth, lipgloss.Width(it.Name))
	}
	barWidth := max(width-labelWidth-12, 10)
	peak := items[0].TotalSeconds
	for _, it := range items {
		peak = math.Max(peak, it.TotalSeconds)
	}

	var b strings.Builder
	for i, it := range items {
		n := 0
		if peak > 0 {
			n = int(math.Round(it.TotalSeconds / peak * float64(barWidth)))
		}
		label := it.Name + strings.Repeat(" ", labelWidth-lipgloss.Width(it.Name))
		b.WriteString(fmt.Sprintf("%s %s %s\n", label,
			colorFor(r, i).Render(strings.Repeat("█", n)),
			timecalc.FormatHoursMinutes(it.TotalSeconds)))
	}
	return b.String()
}

func strip(r *lipgloss.Renderer, items []model.Item, width int) string {
	total := 0.0
	for _, it := range items {
		total += it.TotalSeconds
	}
	var b strings.Builder
	used := 0
	for i, it := range items {
		n := 0
		if total > 0 {
			n = int(math.Round(it.TotalSeconds / total * float64(width)))
		}
		if i == len(items)-1 {
			n = width - used
		}
		n = max(min(n, width-used), 0)
		used += n
		b.WriteString(colorFor(r, i).Render(strings.Repeat("█", n)))
	}
	b.WriteString("\n")
	return b.String()
}

func legend(r *lipgloss.Renderer, items []model.Item) string {
	total := 0.0
	for _, it := range items {
		total += it.TotalSeconds
	}
	var b strings.Builder
	for i, it := range items {
		pct := 0.0
		if total > 0 {
			pct = it.TotalSeconds / total * 100
		}
		b.WriteString(fmt.Sprintf("%s %s: %s (%.1f%%)\n",
			colorFor(r, i).Render("■"), it.Name, timecalc.FormatHoursMinutes(it.TotalSeconds), pct))
	}
	return b.String()
}
