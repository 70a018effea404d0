package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerrChaos/obsidian-waka-box/internal/aggregate"
	"github.com/HerrChaos/obsidian-waka-box/internal/chart"
	"github.com/HerrChaos/obsidian-waka-box/internal/config"
	"github.com/HerrChaos/obsidian-waka-box/internal/model"
	"github.com/HerrChaos/obsidian-waka-box/internal/notes"
	"github.com/HerrChaos/obsidian-waka-box/internal/timecalc"
)

var (
	chartNote  string
	chartType  string
	chartKind  string
	chartWidth int
)

var chartCmd = &cobra.Command{
	Use:   "chart [date]",
	Short: "Render a day's time per project, language, editor, machine or OS",
	Long: `Render the summary of a day (default today) in the terminal. The summary
is served from the cache when fresh. With --note the block embedded in that
note is rendered and nothing is fetched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChart,
}

func init() {
	chartCmd.Flags().StringVar(&chartNote, "note", "", "Render the wakatime block of this note file")
	chartCmd.Flags().StringVar(&chartType, "type", "", "Dimension to chart (overrides type_display)")
	chartCmd.Flags().StringVar(&chartKind, "kind", "", "Chart kind (overrides chart_type)")
	chartCmd.Flags().IntVar(&chartWidth, "width", 60, "Chart width in cells")
}

func runChart(cmd *cobra.Command, args []string) error {
	if chartNote != "" {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(chartNote)
		if err != nil {
			return fmt.Errorf("reading note: %w", err)
		}
		s, err := notes.ParseBlock(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", chartNote, err)
		}
		return renderSummary(cmd.OutOrStdout(), s, store.Settings())
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	settings := a.store.Settings()

	date := timecalc.DateKey(time.Now(), settings.DateFormat)
	if len(args) == 1 {
		day, err := timecalc.ParseDate(args[0], settings.DateFormat, time.Local)
		if err != nil {
			return err
		}
		date = timecalc.DateKey(day, settings.DateFormat)
	}

	// Without a key only a fresh cache entry can be shown.
	if err := settings.RequireAPIKey(); err != nil {
		s, ok := a.cache.Load(date)
		if !ok {
			return err
		}
		return renderSummary(cmd.OutOrStdout(), s, settings)
	}

	res := a.summaries.GetSummary(cmd.Context(), date, false)
	if !res.OK() {
		return res.Err
	}
	return renderSummary(cmd.OutOrStdout(), res.Summary, settings)
}

// renderSummary draws s using the chart flags over the settings.
func renderSummary(w io.Writer, s *model.Summary, settings config.Settings) error {
	dim := settings.TypeDisplay
	if chartType != "" {
		d, err := model.ParseDimension(chartType)
		if err != nil {
			return err
		}
		dim = d
	}
	kind := settings.ChartType
	if chartKind != "" {
		kind = config.ChartType(chartKind)
		if err := config.Validate(withChart(settings, kind)); err != nil {
			return err
		}
	}

	return chart.NewTerminal().Render(w, aggregate.ForChart(s, dim), chart.Options{
		Kind:       chart.Kind(kind),
		Title:      string(dim),
		ShowLegend: settings.ShowLegend,
		ShowTotal:  settings.DisplayTotalTime,
		Total:      s.CumulativeTotal.Seconds,
		Width:      chartWidth,
	})
}

func withChart(s config.Settings, kind config.ChartType) config.Settings {
	s.ChartType = kind
	return s
}
