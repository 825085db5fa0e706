// Command portalctl inspects and resets persisted table view state in the
// store configured for the portal server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/portal/internal/admin"
	"github.com/JonMunkholm/portal/internal/config"
	"github.com/JonMunkholm/portal/internal/kv"
	"github.com/JonMunkholm/portal/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once the root pre-run has executed.
type app struct {
	open   func(ctx context.Context, cfg *config.Config) (kv.Backend, error)
	cfg    *config.Config
	store  kv.Backend
	tables *admin.Tables
}

func main() {
	if err := newRootCmd(&app{open: kv.Open}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "portalctl",
		Short:        "Administer persisted table view state",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Overload(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// Diagnostics go to stderr so stdout stays parseable.
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))

			store, err := a.open(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
			}

			a.cfg = cfg
			a.store = store
			a.tables = &admin.Tables{Store: store, Prefix: cfg.ViewState.KeyPrefix}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newStateCmd(a))
	return root
}
