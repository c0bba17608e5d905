package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/davarch/notarize/internal/domain"
	"github.com/davarch/notarize/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var initForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage notarize.yaml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a notarize.yaml with default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgPath); err == nil && !initForce {
			return domain.Errorf(domain.KindUsage, "config init", "%s already exists (use --force to overwrite)", cfgPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return domain.ConfigurationError("config init", err)
		}

		if err := config.Save(cfgPath, config.Default()); err != nil {
			return domain.ConfigurationError("config init", err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
