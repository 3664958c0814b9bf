// Package cli wires configuration, storage and services into the schemeapi
// commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/myscheme/schemeapi/config"
	"github.com/myscheme/schemeapi/database"
	"github.com/myscheme/schemeapi/logger"
	"github.com/myscheme/schemeapi/memstore"
	"github.com/myscheme/schemeapi/repository"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile  string
	LogLevel string
	DBDriver string
	MongoURI string
	Database string
}

func (o *RootOptions) overrides() config.Overrides {
	return config.Overrides{
		"LOG_LEVEL":     o.LogLevel,
		"DB_DRIVER":     o.DBDriver,
		"MONGODB_URI":   o.MongoURI,
		"DATABASE_NAME": o.Database,
	}
}

func (o *RootOptions) load(extra config.Overrides) (*config.Config, *logger.Logger, error) {
	flags := o.overrides()
	for k, v := range extra {
		flags[k] = v
	}
	cfg, err := config.Load(o.EnvFile, flags)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})
	return cfg, log, nil
}

// openStore returns the backend selected by DB_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return memstore.New(log.Logger)
	default:
		return database.NewMongoStore(ctx, database.Options{
			URI:          cfg.Database.URI,
			DatabaseName: cfg.Database.Name,
			Transactions: cfg.Database.Transactions,
			Logger:       log.Logger,
		})
	}
}

// NewRootCommand creates the root command for the schemeapi CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "schemeapi",
		Short:         "Government welfare scheme directory API",
		Long:          "schemeapi serves a searchable directory of welfare schemes with eligibility filters, favourites and admin statistics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load (missing file is ignored)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.DBDriver, "db-driver", "", "storage backend (mongo|memory), overrides DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.MongoURI, "mongodb-uri", "", "overrides MONGODB_URI")
	cmd.PersistentFlags().StringVar(&opts.Database, "database", "", "overrides DATABASE_NAME")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))

	return cmd
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
