package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/envconf"
	"github.com/jackc/petclinic-e2e/db"
	"github.com/spf13/cobra"
)

var seedEnvconf = envconf.New()

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and load the sample data",

	Run: func(cmd *cobra.Command, args []string) {
		schema, _ := cmd.Flags().GetBool("schema")

		ctx := context.Background()
		logger := setupLogger("console")
		dbpool := setupPGXConnPool(ctx, seedEnvconf.Value("DATABASE_URL"), logger)
		defer dbpool.Close()

		if schema {
			_, err := dbpool.Exec(ctx, db.Schema)
			if err != nil {
				logger.Fatal().Err(err).Msg("Failed to create schema")
			}
		}

		err := db.ResetData(ctx, dbpool)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load sample data")
		}

		seededAt, err := db.GetCurrentTime(ctx, dbpool)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to read database time")
		}

		logger.Info().Bool("schema", schema).Time("seeded_at", seededAt).Msg("Sample data loaded")
	},
}

func init() {
	seedEnvconf.Register(envconf.Item{Name: "DATABASE_URL", Default: "", Description: "The PostgreSQL connection string"})

	long := &strings.Builder{}
	long.WriteString("Create the schema and load the sample data. Existing data is replaced.\n\nConfigure with the following environment variables:\n\n")
	for _, item := range seedEnvconf.Items() {
		long.WriteString(fmt.Sprintf("  %s\n    Default: %s\n    %s\n\n", item.Name, item.Default, item.Description))
	}
	seedCmd.Long = long.String()

	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Bool("schema", false, "Create the tables before loading data. The database must be empty.")
}
