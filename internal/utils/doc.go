// Package utils holds the configuration, logging and output helpers shared by
// the blogatissue commands.
//
// ConfigurationLoader layers embedded defaults, an optional configuration
// file and BLOGATISSUE_* environment variables through Viper. LoggerFactory
// builds zap loggers that write to stderr and, optionally, to a rotating file.
package utils
