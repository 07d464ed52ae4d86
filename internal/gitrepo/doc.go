// Package gitrepo contains helpers for interrogating a Git working tree.
//
// RepositoryManager answers the questions the synchronizer asks before it
// commits: which branch is checked out, whether a branch exists locally or on
// the remote, whether anything is staged, and which revision HEAD points at.
// The remote URL helpers build the credentialed HTTPS address used for pushes.
package gitrepo
