// Package utils exposes reusable helpers consumed by the CLI commands.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, environment variables, and zap logging, plus the context accessor
// that carries the run identifier through a single update run.
package utils
