package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	notesDir   string
)

var rootCmd = &cobra.Command{
	Use:   "wakabox",
	Short: "WakaTime box – daily WakaTime summaries in your Markdown notes",
	Long: `wakabox fetches WakaTime summaries, caches them for an hour and keeps a
"wakatime" code block up to date in each daily note (<notes_dir>/<date>.md).
Settings live in config.json under ~/.wakabox (or $XDG_CONFIG_HOME/wakabox).`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json (default ~/.wakabox/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log_level)")
	rootCmd.PersistentFlags().StringVar(&notesDir, "notes", "", "Daily notes directory (overrides notes_dir)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
}
