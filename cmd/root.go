package cmd

import (
	"fmt"
	"os"

	"github.com/Centroplan-france/vcom-yuman-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "vysync",
	Short: "VCOM and Yuman reconciler",
	Long: `vysync reconciles sites, equipment, tickets and work orders between the
VCOM monitoring platform and the Yuman field-service platform through a shared
mapping database. Runs are idempotent and safe to schedule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console encoding with the development config gives readable timestamps
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
