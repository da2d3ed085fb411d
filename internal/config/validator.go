package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ValidateConfig rejects configuration values no command could run
// with. Called once before command execution.
func ValidateConfig() error {
	if threshold := viper.GetFloat64("threshold"); threshold <= 0 {
		return fmt.Errorf("invalid threshold %v: must be greater than 0", threshold)
	}
	if maxHistory := viper.GetInt("max_history"); maxHistory < 1 {
		return fmt.Errorf("invalid max_history %d: must be at least 1", maxHistory)
	}
	return nil
}
