package blog

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// LoggerProvider supplies the application logger once configuration is loaded.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded sync configuration.
type ConfigurationProvider func() CommandConfiguration

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveConfiguration(provider ConfigurationProvider) CommandConfiguration {
	if provider == nil {
		return DefaultCommandConfiguration()
	}
	return provider().Sanitize()
}

// stringFlagOverride returns the flag value when the flag was set explicitly.
func stringFlagOverride(command *cobra.Command, flagName string) (string, bool) {
	if command == nil || !command.Flags().Changed(flagName) {
		return "", false
	}
	value, _ := command.Flags().GetString(flagName)
	return value, true
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if len(value) > 0 {
			return value
		}
	}
	return ""
}
