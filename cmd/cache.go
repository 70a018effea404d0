package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached summaries",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached dates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, logger, err := openStore()
		if err != nil {
			return err
		}
		c, err := openCache(store.Settings(), store.Dir(), logger)
		if err != nil {
			return err
		}
		defer c.Close()

		keys, err := c.Keys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No cached summaries.")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, logger, err := openStore()
		if err != nil {
			return err
		}
		c, err := openCache(store.Settings(), store.Dir(), logger)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
