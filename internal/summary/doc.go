// Package summary builds, persists, and renders the per-run change record.
//
// Records are appended to a JSON array on disk that keeps only the most
// recent entries. An unreadable existing log is discarded with a warning so
// that a completed commit is never blocked by bookkeeping.
package summary
