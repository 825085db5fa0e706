package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset persisted table view state",
		Long: `Inspect or reset the per-table view state (hidden, pinned and
resized columns, saved filters, page size and page) the portal stores.

Available subcommands:
  list   - List every table with stored state
  get    - Print the effective state of one table
  reset  - Delete stored state so the table starts from defaults`,
	}
	cmd.AddCommand(newStateListCmd(a), newStateGetCmd(a), newStateResetCmd(a))
	return cmd
}

func newStateListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List tables with stored state",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.tables.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tables)
			}
			if len(tables) == 0 {
				fmt.Fprintln(out, "no stored table state")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TITLE\tBYTES\tREVISION\tUPDATED")
			for _, t := range tables {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t.Title, t.Size, t.Revision, t.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newStateGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <title>",
		Short: "Print the effective state of a table",
		Long: `Print the state a table would load: the stored record merged over
defaults. Fields that fail to decode are reported on stderr and shown with
their default value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, problems, ok, err := a.tables.Inspect(cmd.Context(), args[0], a.cfg.ViewState.DefaultPageSize)
			if err != nil {
				return err
			}

			if !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: nothing stored, showing defaults\n", args[0])
			}
			for _, p := range problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", args[0], p)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
}

func newStateResetCmd(a *app) *cobra.Command {
	var all, yes bool

	cmd := &cobra.Command{
		Use:   "reset [title]",
		Short: "Delete stored state for a table",
		Long: `Delete stored state so the table loads defaults next time.

Examples:
  portalctl state reset sales.invoices
  portalctl state reset --all --yes`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !all {
				if err := a.tables.Reset(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "reset %s\n", args[0])
				return nil
			}

			if !yes {
				return errors.New("--all deletes every stored table state; pass --yes to confirm")
			}
			n, err := a.tables.ResetAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("reset stopped after %d tables: %w", n, err)
			}
			fmt.Fprintf(out, "reset %d tables\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reset every table")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm --all")
	return cmd
}
