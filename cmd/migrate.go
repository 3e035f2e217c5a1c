package cmd

import (
	"context"

	"example.com/backstage/services/interactions/internal/database"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long: `Resolves the database URL and creates the interaction table and
indexes if they do not exist. Existing data is never touched.
This is useful for CI/CD pipelines or initial setup.`,
	Run: func(cmd *cobra.Command, args []string) {
		runMigration()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// runMigration executes the schema bootstrap and fails hard on error
func runMigration() {
	db := connect(context.Background(), cfg)
	defer db.Close()

	log.Info("Ensuring database schema...")
	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("Failed to create database schema: %v", err)
	}

	log.Info("Database schema is ready")
}
