package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/tagpush/internal/execshell"
	"github.com/temirov/tagpush/internal/shared"
)

const (
	showRefSubcommandConstant      = "show-ref"
	verifyFlagConstant             = "--verify"
	quietFlagConstant              = "--quiet"
	localBranchReferencePrefix     = "refs/heads/"
	lsRemoteSubcommandConstant     = "ls-remote"
	headsFlagConstant              = "--heads"
	branchSubcommandConstant       = "branch"
	showCurrentFlagConstant        = "--show-current"
	revParseSubcommandConstant     = "rev-parse"
	headReferenceConstant          = "HEAD"
	diffSubcommandConstant         = "diff"
	cachedFlagConstant             = "--cached"
	differencesFoundExitCode       = 1
	missingReferenceExitCode       = 1
	gitOperationErrorTemplate      = "%s: %w"
	localBranchOperationConstant   = "local branch lookup"
	remoteBranchOperationConstant  = "remote branch lookup"
	currentBranchOperationConstant = "current branch lookup"
	headRevisionOperationConstant  = "head revision lookup"
	stagedChangesOperationConstant = "staged changes lookup"
	missingExecutorMessageConstant = "git executor not configured"
)

// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(missingExecutorMessageConstant)

// RepositoryManager runs read-only git queries against a working tree.
type RepositoryManager struct {
	executor shared.GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor shared.GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// LocalBranchExists reports whether refs/heads/<branch> exists.
func (manager *RepositoryManager) LocalBranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	_, executionError := manager.run(executionContext, repositoryPath, showRefSubcommandConstant, verifyFlagConstant, quietFlagConstant, localBranchReferencePrefix+branchName)
	if executionError == nil {
		return true, nil
	}
	if exitCodeOf(executionError) == missingReferenceExitCode {
		return false, nil
	}
	return false, fmt.Errorf(gitOperationErrorTemplate, localBranchOperationConstant, executionError)
}

// RemoteBranchExists reports whether the remote advertises the branch head.
func (manager *RepositoryManager) RemoteBranchExists(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (bool, error) {
	result, executionError := manager.run(executionContext, repositoryPath, lsRemoteSubcommandConstant, headsFlagConstant, remoteName, branchName)
	if executionError != nil {
		return false, fmt.Errorf(gitOperationErrorTemplate, remoteBranchOperationConstant, executionError)
	}
	return len(strings.TrimSpace(result.StandardOutput)) > 0, nil
}

// CurrentBranch returns the checked out branch name, empty when HEAD is detached.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	result, executionError := manager.run(executionContext, repositoryPath, branchSubcommandConstant, showCurrentFlagConstant)
	if executionError != nil {
		return "", fmt.Errorf(gitOperationErrorTemplate, currentBranchOperationConstant, executionError)
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// HeadRevision returns the full SHA of HEAD.
func (manager *RepositoryManager) HeadRevision(executionContext context.Context, repositoryPath string) (string, error) {
	result, executionError := manager.run(executionContext, repositoryPath, revParseSubcommandConstant, headReferenceConstant)
	if executionError != nil {
		return "", fmt.Errorf(gitOperationErrorTemplate, headRevisionOperationConstant, executionError)
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// HasStagedChanges reports whether the index differs from HEAD.
func (manager *RepositoryManager) HasStagedChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	_, executionError := manager.run(executionContext, repositoryPath, diffSubcommandConstant, cachedFlagConstant, quietFlagConstant)
	if executionError == nil {
		return false, nil
	}
	if exitCodeOf(executionError) == differencesFoundExitCode {
		return true, nil
	}
	return false, fmt.Errorf(gitOperationErrorTemplate, stagedChangesOperationConstant, executionError)
}

func (manager *RepositoryManager) run(executionContext context.Context, repositoryPath string, arguments ...string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
}

func exitCodeOf(executionError error) int {
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return failedError.Result.ExitCode
	}
	return -1
}
