package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerrChaos/obsidian-waka-box/internal/prompt"
	"github.com/HerrChaos/obsidian-waka-box/internal/timecalc"
)

var fetchPrint bool

var fetchCmd = &cobra.Command{
	Use:   "fetch [date]",
	Short: "Fetch a specific date's data and copy the block to the clipboard",
	Long: `Fetch the summary of one day and copy its wakatime block to the clipboard.
Without a date an inline prompt pre-filled with today is shown. Notes are not
touched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchPrint, "print", false, "Write the block to stdout instead of the clipboard")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var input string
	if len(args) == 1 {
		input = args[0]
	} else {
		today := timecalc.DateKey(time.Now(), a.store.Settings().DateFormat)
		input, err = prompt.Date(cmd.Context(), today, a.store.Settings().DateFormat, os.Stdin, os.Stderr)
		if errors.Is(err, prompt.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	if fetchPrint {
		block, _, err := a.policy.FetchBlock(cmd.Context(), input)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), block)
		return nil
	}
	_, err = a.policy.FetchToClipboard(cmd.Context(), input)
	return err
}
