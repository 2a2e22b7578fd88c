package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kuitang/yanote/internal/config"
	"github.com/kuitang/yanote/internal/db"
	"github.com/kuitang/yanote/internal/obs"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "yanote",
	Short: "Personal notes with slugs, authors and sessions",
	Long: `yanote is a small notes service. Every note has a title, a body and a
unique slug; only its author may read, edit or delete it.

Configuration comes from the environment. A .env file is loaded first when present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := obs.SetLevel(logLevel); err != nil {
			return err
		}
		obs.Init()
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		}
		return nil
	},
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn or error")
}

// openDatabase loads configuration and opens a migrated database.
func openDatabase(addr string) (*config.Config, *db.DB, error) {
	cfg, err := config.Load(addr)
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DatabasePath, cfg.DatabaseKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, database, nil
}
