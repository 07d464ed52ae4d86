// Package cli constructs the tagpush command-line interface, wiring the Cobra
// command hierarchy, configuration loader, and structured logging. The root
// command performs an update run; the history subcommand prints recorded runs.
package cli
