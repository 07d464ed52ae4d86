package gitsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/tagpush/internal/execshell"
	"github.com/temirov/tagpush/internal/gitrepo"
	"github.com/temirov/tagpush/internal/shared"
)

const (
	configSubcommandConstant        = "config"
	globalFlagConstant              = "--global"
	addFlagConstant                 = "--add"
	safeDirectoryKeyConstant        = "safe.directory"
	userNameKeyConstant             = "user.name"
	userEmailKeyConstant            = "user.email"
	pullRebaseKeyConstant           = "pull.rebase"
	pullRebaseDisabledConstant      = "false"
	fetchSubcommandConstant         = "fetch"
	checkoutSubcommandConstant      = "checkout"
	createBranchFlagConstant        = "-b"
	pullSubcommandConstant          = "pull"
	addSubcommandConstant           = "add"
	currentDirectoryConstant        = "."
	commitSubcommandConstant        = "commit"
	messageFlagConstant             = "-m"
	pushSubcommandConstant          = "push"
	remoteReferenceTemplate         = "%s/%s"
	operationErrorTemplateConstant  = "%s: %w"
	configureIdentityOperation      = "configure git identity"
	fetchOperationConstant          = "fetch remote"
	synchronizeOperationConstant    = "synchronize branch"
	commitOperationConstant         = "commit changes"
	missingExecutorMessageConstant  = "git executor not configured"
	missingManagerMessageConstant   = "repository manager not configured"
	branchStateLogMessageConstant   = "Reconciling branch"
	noStagedChangesLogMessage       = "No staged changes to commit"
	committedLogMessageConstant     = "Committed changes"
	pushAttemptFailedLogMessage     = "Push attempt failed"
	pushSucceededLogMessageConstant = "Pushed changes"
	pushExhaustedLogMessageConstant = "Push attempts exhausted"
	branchLogFieldConstant          = "branch"
	stateLogFieldConstant           = "state"
	revisionLogFieldConstant        = "revision"
	attemptLogFieldConstant         = "attempt"
	maxAttemptsLogFieldConstant     = "max_attempts"
	remoteLogFieldConstant          = "remote"
	retryDelayLogFieldConstant      = "retry_delay"
	errorLogFieldConstant           = "error"
	redactedTokenConstant           = "***"
)

// BranchState describes which copies of the target branch exist.
type BranchState string

// Supported branch states.
const (
	BranchStateAbsent     BranchState = "no-local-no-remote"
	BranchStateLocalOnly  BranchState = "local-only"
	BranchStateRemoteOnly BranchState = "remote-only"
	BranchStateBoth       BranchState = "both"
)

// DetermineBranchState maps branch presence onto a BranchState.
func DetermineBranchState(localExists bool, remoteExists bool) BranchState {
	switch {
	case localExists && remoteExists:
		return BranchStateBoth
	case localExists:
		return BranchStateLocalOnly
	case remoteExists:
		return BranchStateRemoteOnly
	default:
		return BranchStateAbsent
	}
}

// Identity holds the commit author settings.
type Identity struct {
	Name  string
	Email string
}

// CommitResult describes the outcome of Commit.
type CommitResult struct {
	Committed bool
	Revision  string
}

// PushRequest configures PushWithRetry.
type PushRequest struct {
	Remote      gitrepo.RemoteURL
	Token       string
	Branch      string
	MaxAttempts int
	RetryDelay  time.Duration
}

// Dependencies enumerates collaborators required by the synchronizer.
type Dependencies struct {
	GitExecutor       shared.GitExecutor
	RepositoryManager *gitrepo.RepositoryManager
	Sleeper           shared.Sleeper
	Logger            *zap.Logger
}

// Service performs the mutating git operations of a run.
type Service struct {
	executor          shared.GitExecutor
	repositoryManager *gitrepo.RepositoryManager
	sleeper           shared.Sleeper
	logger            *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.GitExecutor == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotConfigured, missingExecutorMessageConstant)
	}
	if dependencies.RepositoryManager == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotConfigured, missingManagerMessageConstant)
	}
	sleeper := dependencies.Sleeper
	if sleeper == nil {
		sleeper = shared.TimerSleeper{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		executor:          dependencies.GitExecutor,
		repositoryManager: dependencies.RepositoryManager,
		sleeper:           sleeper,
		logger:            logger,
	}, nil
}

// ConfigureIdentity marks the repository as safe and sets the commit identity and pull strategy.
func (service *Service) ConfigureIdentity(executionContext context.Context, repositoryPath string, identity Identity) error {
	commands := [][]string{
		{configSubcommandConstant, globalFlagConstant, addFlagConstant, safeDirectoryKeyConstant, repositoryPath},
		{configSubcommandConstant, userNameKeyConstant, identity.Name},
		{configSubcommandConstant, userEmailKeyConstant, identity.Email},
		{configSubcommandConstant, pullRebaseKeyConstant, pullRebaseDisabledConstant},
	}
	for _, arguments := range commands {
		if _, executionError := service.run(executionContext, repositoryPath, arguments...); executionError != nil {
			return fmt.Errorf(operationErrorTemplateConstant, configureIdentityOperation, executionError)
		}
	}
	return nil
}

// Fetch updates remote tracking references.
func (service *Service) Fetch(executionContext context.Context, repositoryPath string, remoteName string) error {
	if _, executionError := service.run(executionContext, repositoryPath, fetchSubcommandConstant, remoteName); executionError != nil {
		return fmt.Errorf(operationErrorTemplateConstant, fetchOperationConstant, executionError)
	}
	return nil
}

// SynchronizeBranch checks out the branch, creating or tracking it as needed,
// and pulls when the remote copy exists.
func (service *Service) SynchronizeBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (BranchState, error) {
	currentBranch, currentError := service.repositoryManager.CurrentBranch(executionContext, repositoryPath)
	if currentError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, synchronizeOperationConstant, currentError)
	}
	localExists, localError := service.repositoryManager.LocalBranchExists(executionContext, repositoryPath, branchName)
	if localError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, synchronizeOperationConstant, localError)
	}
	remoteExists, remoteError := service.repositoryManager.RemoteBranchExists(executionContext, repositoryPath, remoteName, branchName)
	if remoteError != nil {
		return "", fmt.Errorf(operationErrorTemplateConstant, synchronizeOperationConstant, remoteError)
	}

	state := DetermineBranchState(localExists, remoteExists)
	service.logger.Info(branchStateLogMessageConstant,
		zap.String(branchLogFieldConstant, branchName),
		zap.String(stateLogFieldConstant, string(state)))

	var steps [][]string
	switch state {
	case BranchStateAbsent:
		steps = append(steps, []string{checkoutSubcommandConstant, createBranchFlagConstant, branchName})
	case BranchStateRemoteOnly:
		steps = append(steps,
			[]string{checkoutSubcommandConstant, createBranchFlagConstant, branchName, fmt.Sprintf(remoteReferenceTemplate, remoteName, branchName)},
			[]string{pullSubcommandConstant, remoteName, branchName})
	case BranchStateLocalOnly, BranchStateBoth:
		if currentBranch != branchName {
			steps = append(steps, []string{checkoutSubcommandConstant, branchName})
		}
		if state == BranchStateBoth {
			steps = append(steps, []string{pullSubcommandConstant, remoteName, branchName})
		}
	}

	for _, arguments := range steps {
		if _, executionError := service.run(executionContext, repositoryPath, arguments...); executionError != nil {
			return state, fmt.Errorf(operationErrorTemplateConstant, synchronizeOperationConstant, executionError)
		}
	}
	return state, nil
}

// Commit stages the working tree and commits it. An empty index yields an uncommitted result.
func (service *Service) Commit(executionContext context.Context, repositoryPath string, message string) (CommitResult, error) {
	if _, addError := service.run(executionContext, repositoryPath, addSubcommandConstant, currentDirectoryConstant); addError != nil {
		return CommitResult{}, fmt.Errorf(operationErrorTemplateConstant, commitOperationConstant, addError)
	}

	hasChanges, stagedError := service.repositoryManager.HasStagedChanges(executionContext, repositoryPath)
	if stagedError != nil {
		return CommitResult{}, fmt.Errorf(operationErrorTemplateConstant, commitOperationConstant, stagedError)
	}
	if !hasChanges {
		service.logger.Info(noStagedChangesLogMessage)
		return CommitResult{}, nil
	}

	if _, commitError := service.run(executionContext, repositoryPath, commitSubcommandConstant, messageFlagConstant, message); commitError != nil {
		return CommitResult{}, fmt.Errorf(operationErrorTemplateConstant, commitOperationConstant, commitError)
	}

	revision, revisionError := service.repositoryManager.HeadRevision(executionContext, repositoryPath)
	if revisionError != nil {
		return CommitResult{Committed: true}, fmt.Errorf(operationErrorTemplateConstant, commitOperationConstant, revisionError)
	}
	service.logger.Info(committedLogMessageConstant, zap.String(revisionLogFieldConstant, revision))
	return CommitResult{Committed: true, Revision: revision}, nil
}

// PushWithRetry pushes the branch, waiting RetryDelay between failed attempts.
func (service *Service) PushWithRetry(executionContext context.Context, repositoryPath string, request PushRequest) error {
	maxAttempts := request.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	pushURL := request.Remote.Authenticated(request.Token)

	var lastError error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, pushError := service.run(executionContext, repositoryPath, pushSubcommandConstant, pushURL, request.Branch)
		if pushError == nil {
			service.logger.Info(pushSucceededLogMessageConstant,
				zap.String(branchLogFieldConstant, request.Branch),
				zap.String(remoteLogFieldConstant, request.Remote.String()),
				zap.Int(attemptLogFieldConstant, attempt))
			return nil
		}
		lastError = pushError

		if attempt == maxAttempts {
			break
		}
		service.logger.Warn(pushAttemptFailedLogMessage,
			zap.Int(attemptLogFieldConstant, attempt),
			zap.Int(maxAttemptsLogFieldConstant, maxAttempts),
			zap.Duration(retryDelayLogFieldConstant, request.RetryDelay),
			zap.String(remoteLogFieldConstant, request.Remote.Redacted()),
			zap.String(errorLogFieldConstant, redactToken(pushError.Error(), request.Token)))
		if sleepError := service.sleeper.Sleep(executionContext, request.RetryDelay); sleepError != nil {
			return sleepError
		}
	}

	service.logger.Error(pushExhaustedLogMessageConstant, zap.Int(maxAttemptsLogFieldConstant, maxAttempts))
	return PushRetriesExhaustedError{Attempts: maxAttempts, LastError: lastError}
}

func (service *Service) run(executionContext context.Context, repositoryPath string, arguments ...string) (execshell.ExecutionResult, error) {
	return service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
}

func redactToken(message string, token string) string {
	if len(token) == 0 {
		return message
	}
	return strings.ReplaceAll(execshell.RedactCredentials(message), token, redactedTokenConstant)
}
