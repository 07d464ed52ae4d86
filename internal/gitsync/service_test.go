package gitsync_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/tagpush/internal/execshell"
	"github.com/temirov/tagpush/internal/gitrepo"
	"github.com/temirov/tagpush/internal/gitsync"
)

const (
	testRepositoryPathConstant = "/workspace/charts"
	testRemoteNameConstant     = "origin"
	testBranchNameConstant     = "deploy"
	testTokenConstant          = "ghs_secret_token"
)

type stubGitExecutor struct {
	responses      map[string][]error
	outputs        map[string]string
	recordedDetail []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetail = append(executor.recordedDetail, details)
	key := strings.Join(details.Arguments, " ")
	result := execshell.ExecutionResult{StandardOutput: executor.outputs[key]}
	queuedErrors := executor.responses[key]
	if len(queuedErrors) == 0 {
		return result, nil
	}
	nextError := queuedErrors[0]
	if len(queuedErrors) > 1 {
		executor.responses[key] = queuedErrors[1:]
	}
	return result, nextError
}

func (executor *stubGitExecutor) recordedCommands() []string {
	commands := make([]string, 0, len(executor.recordedDetail))
	for _, details := range executor.recordedDetail {
		commands = append(commands, strings.Join(details.Arguments, " "))
	}
	return commands
}

type recordingSleeper struct {
	durations []time.Duration
}

func (sleeper *recordingSleeper) Sleep(_ context.Context, duration time.Duration) error {
	sleeper.durations = append(sleeper.durations, duration)
	return nil
}

func exitFailure(exitCode int) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{ExitCode: exitCode},
	}
}

func newTestService(testInstance *testing.T, executor *stubGitExecutor, sleeper *recordingSleeper, logger *zap.Logger) *gitsync.Service {
	testInstance.Helper()
	if executor.responses == nil {
		executor.responses = map[string][]error{}
	}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)
	service, serviceError := gitsync.NewService(gitsync.Dependencies{
		GitExecutor:       executor,
		RepositoryManager: manager,
		Sleeper:           sleeper,
		Logger:            logger,
	})
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	_, missingExecutorError := gitsync.NewService(gitsync.Dependencies{})
	require.ErrorIs(testInstance, missingExecutorError, gitsync.ErrServiceNotConfigured)

	_, missingManagerError := gitsync.NewService(gitsync.Dependencies{GitExecutor: &stubGitExecutor{}})
	require.ErrorIs(testInstance, missingManagerError, gitsync.ErrServiceNotConfigured)
}

func TestDetermineBranchState(testInstance *testing.T) {
	require.Equal(testInstance, gitsync.BranchStateAbsent, gitsync.DetermineBranchState(false, false))
	require.Equal(testInstance, gitsync.BranchStateLocalOnly, gitsync.DetermineBranchState(true, false))
	require.Equal(testInstance, gitsync.BranchStateRemoteOnly, gitsync.DetermineBranchState(false, true))
	require.Equal(testInstance, gitsync.BranchStateBoth, gitsync.DetermineBranchState(true, true))
}

func TestConfigureIdentity(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	service := newTestService(testInstance, executor, &recordingSleeper{}, zap.NewNop())

	configureError := service.ConfigureIdentity(context.Background(), testRepositoryPathConstant, gitsync.Identity{Name: "Release Bot", Email: "bot@example.com"})
	require.NoError(testInstance, configureError)
	require.Equal(testInstance, []string{
		"config --global --add safe.directory /workspace/charts",
		"config user.name Release Bot",
		"config user.email bot@example.com",
		"config pull.rebase false",
	}, executor.recordedCommands())
	for _, details := range executor.recordedDetail {
		require.Equal(testInstance, testRepositoryPathConstant, details.WorkingDirectory)
	}
}

func TestFetchWrapsFailure(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: map[string][]error{"fetch origin": {exitFailure(128)}}}
	service := newTestService(testInstance, executor, &recordingSleeper{}, zap.NewNop())

	fetchError := service.Fetch(context.Background(), testRepositoryPathConstant, testRemoteNameConstant)
	require.Error(testInstance, fetchError)
	var failedError execshell.CommandFailedError
	require.ErrorAs(testInstance, fetchError, &failedError)
}

func TestSynchronizeBranch(testInstance *testing.T) {
	testCases := []struct {
		name             string
		currentBranch    string
		localExists      bool
		remoteExists     bool
		expectedState    gitsync.BranchState
		expectedMutating []string
	}{
		{
			name:             "creates_new_branch",
			currentBranch:    "main",
			expectedState:    gitsync.BranchStateAbsent,
			expectedMutating: []string{"checkout -b deploy"},
		},
		{
			name:             "tracks_remote_branch",
			currentBranch:    "main",
			remoteExists:     true,
			expectedState:    gitsync.BranchStateRemoteOnly,
			expectedMutating: []string{"checkout -b deploy origin/deploy", "pull origin deploy"},
		},
		{
			name:             "switches_to_local_branch",
			currentBranch:    "main",
			localExists:      true,
			expectedState:    gitsync.BranchStateLocalOnly,
			expectedMutating: []string{"checkout deploy"},
		},
		{
			name:             "already_on_local_branch",
			currentBranch:    testBranchNameConstant,
			localExists:      true,
			expectedState:    gitsync.BranchStateLocalOnly,
			expectedMutating: []string{},
		},
		{
			name:             "switches_and_pulls",
			currentBranch:    "main",
			localExists:      true,
			remoteExists:     true,
			expectedState:    gitsync.BranchStateBoth,
			expectedMutating: []string{"checkout deploy", "pull origin deploy"},
		},
		{
			name:             "pulls_when_already_checked_out",
			currentBranch:    testBranchNameConstant,
			localExists:      true,
			remoteExists:     true,
			expectedState:    gitsync.BranchStateBoth,
			expectedMutating: []string{"pull origin deploy"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor := &stubGitExecutor{
				responses: map[string][]error{},
				outputs: map[string]string{
					"branch --show-current": testCase.currentBranch + "\n",
				},
			}
			if !testCase.localExists {
				executor.responses["show-ref --verify --quiet refs/heads/deploy"] = []error{exitFailure(1)}
			}
			if testCase.remoteExists {
				executor.outputs["ls-remote --heads origin deploy"] = "abc\trefs/heads/deploy\n"
			}
			service := newTestService(subTest, executor, &recordingSleeper{}, zap.NewNop())

			state, synchronizeError := service.SynchronizeBranch(context.Background(), testRepositoryPathConstant, testRemoteNameConstant, testBranchNameConstant)
			require.NoError(subTest, synchronizeError)
			require.Equal(subTest, testCase.expectedState, state)

			recorded := executor.recordedCommands()
			require.Equal(subTest, []string{
				"branch --show-current",
				"show-ref --verify --quiet refs/heads/deploy",
				"ls-remote --heads origin deploy",
			}, recorded[:3])
			require.Equal(subTest, testCase.expectedMutating, recorded[3:])
		})
	}
}

func TestSynchronizeBranchPropagatesCheckoutFailure(testInstance *testing.T) {
	executor := &stubGitExecutor{
		responses: map[string][]error{
			"show-ref --verify --quiet refs/heads/deploy": {exitFailure(1)},
			"checkout -b deploy":                          {exitFailure(128)},
		},
	}
	service := newTestService(testInstance, executor, &recordingSleeper{}, zap.NewNop())

	state, synchronizeError := service.SynchronizeBranch(context.Background(), testRepositoryPathConstant, testRemoteNameConstant, testBranchNameConstant)
	require.Error(testInstance, synchronizeError)
	require.Equal(testInstance, gitsync.BranchStateAbsent, state)
}

func TestCommit(testInstance *testing.T) {
	testInstance.Run("no_staged_changes", func(subTest *testing.T) {
		executor := &stubGitExecutor{}
		service := newTestService(subTest, executor, &recordingSleeper{}, zap.NewNop())

		result, commitError := service.Commit(context.Background(), testRepositoryPathConstant, "Update image tag")
		require.NoError(subTest, commitError)
		require.Equal(subTest, gitsync.CommitResult{}, result)
		require.Equal(subTest, []string{"add .", "diff --cached --quiet"}, executor.recordedCommands())
	})

	testInstance.Run("commits_and_reads_revision", func(subTest *testing.T) {
		executor := &stubGitExecutor{
			responses: map[string][]error{"diff --cached --quiet": {exitFailure(1)}},
			outputs:   map[string]string{"rev-parse HEAD": "1234567890abcdef1234567890abcdef12345678\n"},
		}
		service := newTestService(subTest, executor, &recordingSleeper{}, zap.NewNop())

		result, commitError := service.Commit(context.Background(), testRepositoryPathConstant, "Update image tag charts (values.yaml)")
		require.NoError(subTest, commitError)
		require.Equal(subTest, gitsync.CommitResult{Committed: true, Revision: "1234567890abcdef1234567890abcdef12345678"}, result)
		require.Equal(subTest, "-m", executor.recordedDetail[2].Arguments[1])
		require.Equal(subTest, "Update image tag charts (values.yaml)", executor.recordedDetail[2].Arguments[2])
	})
}

func TestPushWithRetry(testInstance *testing.T) {
	remote := gitrepo.RemoteURL{Host: "github.com", Owner: "acme", Repository: "charts"}
	pushKey := "push https://x-access-token:" + testTokenConstant + "@github.com/acme/charts deploy"
	request := gitsync.PushRequest{Remote: remote, Token: testTokenConstant, Branch: testBranchNameConstant, MaxAttempts: 3, RetryDelay: 5 * time.Second}

	testInstance.Run("succeeds_after_failures", func(subTest *testing.T) {
		executor := &stubGitExecutor{responses: map[string][]error{pushKey: {exitFailure(1), exitFailure(1), nil}}}
		sleeper := &recordingSleeper{}
		core, observedLogs := observer.New(zapcore.DebugLevel)
		service := newTestService(subTest, executor, sleeper, zap.New(core))

		pushError := service.PushWithRetry(context.Background(), testRepositoryPathConstant, request)
		require.NoError(subTest, pushError)
		require.Len(subTest, executor.recordedDetail, 3)
		require.Equal(subTest, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.durations)
		for _, entry := range observedLogs.All() {
			for _, field := range entry.Context {
				require.NotContains(subTest, field.String, testTokenConstant)
			}
		}
	})

	testInstance.Run("exhausts_attempts", func(subTest *testing.T) {
		executor := &stubGitExecutor{responses: map[string][]error{pushKey: {errors.New("rejected")}}}
		sleeper := &recordingSleeper{}
		service := newTestService(subTest, executor, sleeper, zap.NewNop())

		pushError := service.PushWithRetry(context.Background(), testRepositoryPathConstant, request)
		require.ErrorIs(subTest, pushError, gitsync.ErrPushRetriesExhausted)
		var exhaustedError gitsync.PushRetriesExhaustedError
		require.ErrorAs(subTest, pushError, &exhaustedError)
		require.Equal(subTest, 3, exhaustedError.Attempts)
		require.Equal(subTest, "failed to push changes after 3 attempts", pushError.Error())
		require.Len(subTest, executor.recordedDetail, 3)
		require.Len(subTest, sleeper.durations, 2)
	})

	testInstance.Run("single_attempt_does_not_sleep", func(subTest *testing.T) {
		executor := &stubGitExecutor{responses: map[string][]error{pushKey: {errors.New("rejected")}}}
		sleeper := &recordingSleeper{}
		service := newTestService(subTest, executor, sleeper, zap.NewNop())

		singleAttempt := request
		singleAttempt.MaxAttempts = 1
		pushError := service.PushWithRetry(context.Background(), testRepositoryPathConstant, singleAttempt)
		require.ErrorIs(subTest, pushError, gitsync.ErrPushRetriesExhausted)
		require.Empty(subTest, sleeper.durations)
	})
}
