package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/output"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently picked magnets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No selections recorded yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), output.HistoryTable(entries, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Entries to show (0 = all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <code>...",
		Short: "Drop recorded selections so the codes are picked again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			for _, code := range args {
				n, err := store.Forget(cmd.Context(), code)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d forgotten\n", strings.ToUpper(code), n)
			}
			return nil
		},
	})

	return cmd
}
