package cmd

import (
	"fmt"

	"github.com/Centroplan-france/vcom-yuman-sync/core/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// checkCmd is the parent command for environment checks.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the environment vysync runs against",
}

// checkSchemaCmd verifies that every whitelisted column exists.
var checkSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Verify the mapping tables expose every column the sync writes",
	Long: `Compares the column whitelist of every mapping table with the live
database schema. Missing tables or columns are listed and the command exits
non-zero. The tool never creates or alters tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		expected := make(map[string][]string)
		for _, p := range rt.store.Profiles() {
			expected[p.TableName] = p.ColumnNames()
		}

		missing, err := database.FindMissingColumns(rt.store.DB(), expected)
		if err != nil {
			return fmt.Errorf("failed to inspect schema: %w", err)
		}
		for _, m := range missing {
			rt.logger.Warn("Missing column", zap.String("table", m.Table), zap.String("column", m.Column))
		}
		if len(missing) > 0 {
			return fmt.Errorf("%d column(s) missing from the mapping schema", len(missing))
		}

		rt.logger.Info("Schema check passed", zap.Int("tables", len(expected)))
		return nil
	},
}

func init() {
	checkCmd.AddCommand(checkSchemaCmd)
	RootCmd.AddCommand(checkCmd)
}
