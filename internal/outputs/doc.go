// Package outputs publishes run results as CI step outputs using the
// GitHub Actions key=value file protocol.
package outputs
