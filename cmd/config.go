package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HerrChaos/obsidian-waka-box/internal/config"
)

var configShowSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		return printSettings(cmd.OutOrStdout(), store.Path(), store.Settings(), configShowSecrets)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting and save it",
	Long:  "Change one setting and save it. Keys: " + strings.Join(config.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s in %s\n", args[0], store.Path())
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored defaults in %s\n", store.Path())
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowSecrets, "secrets", false, "Print api_key and access_token unmasked")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

// mask hides all but the last four characters of a secret.
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func printSettings(w io.Writer, path string, s config.Settings, secrets bool) error {
	key, token := s.APIKey, s.AccessToken
	if !secrets {
		key, token = mask(key), mask(token)
	}
	fmt.Fprintf(w, "# %s\n", path)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"api_key", key},
		{"api_base_url", s.APIBaseURL},
		{"access_token", token},
		{"date_format", s.DateFormat},
		{"chart_type", string(s.ChartType)},
		{"type_display", string(s.TypeDisplay)},
		{"display_total_time", fmt.Sprint(s.DisplayTotalTime)},
		{"show_legend", fmt.Sprint(s.ShowLegend)},
		{"refresh_interval", fmt.Sprint(s.RefreshInterval)},
		{"create_daily_note", fmt.Sprint(s.CreateDailyNote)},
		{"notes_dir", s.NotesDir},
		{"cache.backend", s.Cache.Backend},
		{"cache.dir", s.Cache.Dir},
		{"http_timeout", s.HTTPTimeout.String()},
		{"requests_per_minute", fmt.Sprint(s.RequestsPerMinute)},
		{"log_level", s.LogLevel},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}
