package cmd

import (
	"fmt"
	"os"

	"tracksvc/config"
	"tracksvc/db"
	"tracksvc/logger"
	"tracksvc/server"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// cfg is loaded once before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tracksvc",
	Short: "tracksvc serves song metadata over HTTP.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   cfg.LogCompress,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
	SilenceUsage: true,
}

func closeDB(gdb *gorm.DB) {
	if err := db.Close(gdb); err != nil {
		logger.Warn("failed to close database", logger.ErrorField(err))
	}
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
