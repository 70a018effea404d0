package cmd

import (
	"github.com/spf13/cobra"

	"github.com/HerrChaos/obsidian-waka-box/internal/notes"
)

var refreshOrToday bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force refetch a day and update its daily note",
}

var refreshTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Force refetch today's data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.policy.RefreshToday(cmd.Context())
	},
}

var refreshYesterdayCmd = &cobra.Command{
	Use:   "yesterday",
	Short: "Force refetch yesterday's data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.policy.RefreshYesterday(cmd.Context())
	},
}

var refreshNoteCmd = &cobra.Command{
	Use:   "note <title-or-path>",
	Short: "Force refetch the day a daily note is named after",
	Long: `Refetch the day named by a note title. A path is reduced to its file name
without extension, so "notes/2024-01-02.md" refreshes 2024-01-02.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefreshNote,
}

func init() {
	refreshNoteCmd.Flags().BoolVar(&refreshOrToday, "or-today", false, "Refresh today when the title is not a date")
	refreshCmd.AddCommand(refreshTodayCmd)
	refreshCmd.AddCommand(refreshYesterdayCmd)
	refreshCmd.AddCommand(refreshNoteCmd)
}

func runRefreshNote(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	title := notes.Title(args[0])
	if refreshOrToday {
		return a.policy.RefreshNoteOrToday(cmd.Context(), title)
	}
	return a.policy.RefreshNote(cmd.Context(), title)
}
