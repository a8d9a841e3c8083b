package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/example/hotel-booking/internal/config"
)

// envFile is the dotenv file read before the environment.
var envFile string

// NewRootCmd creates the root command of the hotel CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotel",
		Short: "Hotel booking API server",
		Long: `hotel serves the booking API (rooms, reservations, change requests,
inquiries and payments) and provides database maintenance commands.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCreateAdminCmd())

	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadWithEnvFile(envFile)
	if err != nil {
		return config.Config{}, oops.Code("CONFIG_INVALID").With("env_file", envFile).Wrap(err)
	}
	return cfg, nil
}
