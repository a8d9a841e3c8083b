package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/example/hotel-booking/internal/persistence/sqlite"
)

// NewMigrateCmd creates the migrate subcommand. Without a subcommand it
// applies every pending migration.
func NewMigrateCmd() *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the SQLite schema. Without a subcommand all pending migrations
are applied. The database defaults to HOTEL_SQLITE_DSN.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(database, func(m *sqlite.Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
	cmd.PersistentFlags().StringVar(&database, "database", "", "SQLite database path (overrides HOTEL_SQLITE_DSN)")

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(database, func(m *sqlite.Migrator) error {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations (negative N rolls back)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			return withMigrator(database, func(m *sqlite.Migrator) error {
				if err := m.Steps(n); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "step migrations").Wrap(err)
				}
				cmd.Printf("Applied %d migration step(s)\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(database, func(m *sqlite.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("version %d (dirty)\n", version)
					return nil
				}
				cmd.Printf("version %d\n", version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			return withMigrator(database, func(m *sqlite.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// parseVersionArg parses a migration version or step count.
func parseVersionArg(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Errorf("expected an integer, got %q", arg)
	}
	return n, nil
}

// databasePath returns the explicit path or falls back to the configuration.
func databasePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.SQLiteDSN, nil
}

func openStorage(explicit string) (*sqlite.Storage, error) {
	path, err := databasePath(explicit)
	if err != nil {
		return nil, err
	}
	storage, err := sqlite.Open(path)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("dsn", path).Wrap(err)
	}
	return storage, nil
}

func withMigrator(database string, fn func(*sqlite.Migrator) error) error {
	storage, err := openStorage(database)
	if err != nil {
		return err
	}
	defer storage.Close()

	migrator, err := sqlite.NewMigrator(storage.Pool().DB())
	if err != nil {
		return err
	}
	defer migrator.Close()

	return fn(migrator)
}
