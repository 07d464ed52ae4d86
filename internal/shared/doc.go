// Package shared declares the collaborator interfaces used across the update
// pipeline together with their operating-system defaults.
package shared
