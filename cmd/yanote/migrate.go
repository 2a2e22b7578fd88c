package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/yanote/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, database, err := openDatabase("")
		if err != nil {
			fatal("Failed to migrate", err)
		}
		defer database.Close()

		applied, err := db.AppliedMigrations(database.SQL())
		if err != nil {
			fatal("Failed to list migrations", err)
		}
		fmt.Printf("%s is at schema version %d\n", cfg.DatabasePath, len(applied))
		for _, name := range applied {
			fmt.Println("  ", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
