package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parleyhq/parley/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Multi-agent planning orchestrator",
	Long: `Parley coordinates a group of per-participant agents negotiating a
shared plan. Agents take turns editing a single canonical planning
document on behalf of their owners, asking each other questions,
looking up external information, and handing the result back to the
humans once the group converges or needs input.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/parley/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PARLEY")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PARLEY_RUN_HARD_CAP for run.hard_cap
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
