// Package cmd provides the techviz command-line interface.
//
// Configuration is read by Viper from, highest priority first:
//  1. command-line flags (--port, --layout, --log-level, ...)
//  2. TECHVIZ_<SECTION>_<OPTION> environment variables
//  3. the config file: --config, else TECHVIZ_CONFIG_FILE, else .techviz.yml
//  4. built-in defaults
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/techviz/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "techviz",
	Short: "Animated software-architecture background",
	Long: `techviz simulates a drifting software-architecture diagram: components
placed by zone, connections routed between compatible kinds, and packets
travelling along them.

Quick Start:
  techviz serve                     Serve the live animation on :8080
  techviz render --out scene.svg    Write a still frame as SVG
  techviz simulate --ticks 600      Run headless and report statistics
  techviz kinds                     List component kinds and their rules
  techviz validate layout.yml       Check a layout file`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .techviz.yml, can also use TECHVIZ_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points Viper at the config file and the TECHVIZ_ environment.
// A missing config file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TECHVIZ_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".techviz")
	}

	viper.SetEnvPrefix("TECHVIZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
