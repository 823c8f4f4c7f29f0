package cmd

import (
	"fmt"

	"tracksvc/db"
	"tracksvc/repository"
	"tracksvc/seed"

	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Drop the tracks table and load the seed dataset",
	Long: `Drop and recreate the tracks table, then insert the seed dataset.
This is the command-line equivalent of GET /seed_db and destroys existing data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedFile != "" {
			cfg.SeedFile = seedFile
		}

		gdb, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		locker, closeLocker, err := seed.NewLocker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeLocker()

		loader := seed.NewLoader(repository.NewGormTrackRepository(gdb), locker, seed.DatasetFor(cfg))
		n, err := loader.Seed(cmd.Context())
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database seeding successful: %d tracks.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML dataset to load instead of the built-in one")
}
