// Package config centralizes viper-backed configuration for the CLI.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes configuration from an optional config file, .env,
// and BENCHDIFF_* environment variables.
func Load(cfgFile string) {
	// explicit .env loading; a missing file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("BENCHDIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("threshold", 10.0)
	viper.SetDefault("max_history", 30)
	viper.SetDefault("working_directory", ".")
	viper.SetDefault("auto_discover", false)
	viper.SetDefault("cargo_args", "")
	viper.SetDefault("verbose", false)

	// A missing config file is not an error; flags and env cover
	// everything.
	_ = viper.ReadInConfig()
}
