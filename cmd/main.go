package main

import (
	"fmt"
	"os"

	"QueryFilter/internal/config"
	"QueryFilter/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "queryfilter",
	Short: "Turn HTTP query parameters into validated document filters",
	Long: `queryfilter parses flat query parameters (shop_id=7&status_in=A,B) against
collection schemas declared in YAML and produces a document-style filter,
projection, sort and pagination. The serve command exposes the parser over
HTTP and can run the result against PostgreSQL.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(modelsCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg = config.LoadConfig()
	if err := logger.Init("."); err != nil {
		return fmt.Errorf("log init failed: %w", err)
	}
	if cfg.Log.Console {
		logger.EnableConsole()
	}
	logger.SetDebug(debugFlag)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
