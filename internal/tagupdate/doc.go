// Package tagupdate wires configuration, file rewriting, and git
// synchronization into the update run exposed by the CLI.
//
// Configuration is loaded from embedded defaults, an optional file, and
// environment variables, then validated into an immutable snapshot. Service.Run
// executes one update: identity setup, branch reconciliation, file selection
// and rewriting, commit, push, and the run summary.
package tagupdate
