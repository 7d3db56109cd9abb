// Package utils holds process-wide helpers: constants, version lookup and logger construction.
package utils

const (
	// ConfigFileName is the configuration file read from the working directory.
	ConfigFileName = ".excerpt.yaml"
	// GlobalConfigFileName is the configuration file inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".excerpt"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"

	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes a fatal command failure.
	ApplicationExecutionFailedMessage = "excerpt failed"
)
