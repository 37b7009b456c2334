package main

import (
	"fmt"
	"os"

	"github.com/obentoo/aptaudit/internal/common/config"
	"github.com/obentoo/aptaudit/internal/common/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the aptaudit configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			logger.Error("loading config: %v", err)
			os.Exit(1)
		}
		data, err := cfg.Marshal()
		if err != nil {
			logger.Error("encoding config: %v", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.FindConfigPath(); err != nil {
				logger.Error("%v", err)
				os.Exit(1)
			}
		}
		fmt.Println(path)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
