package main

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/example/hotel-booking/internal/application"
	"github.com/example/hotel-booking/internal/logging"
)

type createAdminOptions struct {
	database string
	email    string
	password string
	name     string
}

// NewCreateAdminCmd creates the create-admin subcommand.
func NewCreateAdminCmd() *cobra.Command {
	opts := &createAdminOptions{}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first administrator account",
		Long: `Create the first administrator account. The command refuses once an
administrator exists; further staff accounts are created through the API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAdmin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.database, "database", "", "SQLite database path (overrides HOTEL_SQLITE_DSN)")
	cmd.Flags().StringVar(&opts.email, "email", "", "administrator email")
	cmd.Flags().StringVar(&opts.password, "password", "", "administrator password")
	cmd.Flags().StringVar(&opts.name, "name", "Administrator", "administrator display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runCreateAdmin(cmd *cobra.Command, opts *createAdminOptions) error {
	storage, err := openStorage(opts.database)
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx := cmd.Context()
	if err := storage.Migrate(ctx); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	logger := logging.New(cmd.ErrOrStderr(), slog.LevelWarn)
	accounts := application.NewAccountServiceWithLogger(newUserRepositoryAdapter(storage), nil, nil, uuid.NewString, time.Now, logger)
	user, err := accounts.BootstrapAdmin(ctx, application.BootstrapAdminParams{
		Email:    opts.email,
		Password: opts.password,
		Name:     opts.name,
	})
	if err != nil {
		return oops.Code("CREATE_ADMIN_FAILED").With("email", opts.email).Wrap(err)
	}

	cmd.Printf("Administrator %s created (id %s)\n", user.Email, user.ID)
	return nil
}
