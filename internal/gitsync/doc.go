// Package gitsync brings the working tree onto the target branch, records the
// updated files as a commit, and pushes that commit to the remote with a
// bounded number of attempts.
package gitsync
