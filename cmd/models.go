package main

import (
	"fmt"

	"QueryFilter/internal/model"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect collection definitions",
}

var modelsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate every collection in MODELS_DIR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		err := model.InitRegistry(cfg.ModelsDir, cfg.Parser.Location())
		for _, name := range model.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "ok    %s\n", name)
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
			return fmt.Errorf("invalid collections in %s", cfg.ModelsDir)
		}
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsValidateCmd)
}
