package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/nodepat/lint"
)

var forceInit bool

// initCmd: nodepat init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new rule configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		if err := initConfigurationFile(fs, cfgFile, forceInit); err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", cfgFile)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing configuration file")
}

func initConfigurationFile(fs afero.Fs, configurationPath string, force bool) error {
	if configurationPath == "" {
		configurationPath = lint.DefaultConfigFile
	}

	exists, err := afero.Exists(fs, configurationPath)
	if err != nil {
		return err
	}
	if exists && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", configurationPath)
	}

	return lint.SaveConfig(fs, configurationPath, lint.DefaultConfig())
}
