package execshell

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandFailedErrorTemplateConstant        = "%s failed with exit code %d%s"
	commandExecutionErrorTemplateConstant     = "%s failed: %s"
	logFieldCommandConstant                   = "command"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
	logFieldStandardErrorConstant             = "stderr"
)

// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandFailedError reports a command that ran to completion with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failing command with credentials redacted.
func (failedError CommandFailedError) Error() string {
	formatter := CommandMessageFormatter{}
	return fmt.Sprintf(commandFailedErrorTemplateConstant, formatter.formatCommandLabel(failedError.Command), failedError.Result.ExitCode, formatter.formatStandardErrorSuffix(failedError.Result.StandardError))
}

// CommandExecutionError reports a command that could not be started or was interrupted.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure with credentials redacted.
func (executionError CommandExecutionError) Error() string {
	formatter := CommandMessageFormatter{}
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, formatter.formatCommandLabel(executionError.Command), RedactCredentials(formatter.describeFailure(executionError.Cause)))
}

// Unwrap exposes the underlying failure.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ShellExecutor runs commands through a CommandRunner and reports lifecycle events.
type ShellExecutor struct {
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor constructs an executor that logs structured command events.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	return NewObservedShellExecutor(runner, newStructuredCommandEventLogger(logger))
}

// NewObservedShellExecutor constructs an executor that reports command events to the supplied observer.
func NewObservedShellExecutor(runner CommandRunner, observer CommandEventObserver) (*ShellExecutor, error) {
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if observer == nil {
		observer = noopCommandEventObserver{}
	}
	return &ShellExecutor{runner: runner, observer: observer}, nil
}

// Execute runs the command and converts non-zero exit codes into CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)
	if executionResult.ExitCode != 0 {
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	return executionResult, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

type structuredCommandEventLogger struct {
	logger    *zap.Logger
	formatter CommandMessageFormatter
}

func newStructuredCommandEventLogger(logger *zap.Logger) *structuredCommandEventLogger {
	return &structuredCommandEventLogger{logger: logger, formatter: CommandMessageFormatter{}}
}

func (eventLogger *structuredCommandEventLogger) CommandStarted(command ShellCommand) {
	eventLogger.logger.Debug(
		eventLogger.formatter.BuildStartedMessage(command),
		zap.String(logFieldCommandConstant, eventLogger.formatter.formatCommandLabel(command)),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
}

func (eventLogger *structuredCommandEventLogger) CommandCompleted(command ShellCommand, result ExecutionResult) {
	if result.ExitCode == 0 {
		eventLogger.logger.Debug(
			eventLogger.formatter.BuildSuccessMessage(command),
			zap.String(logFieldCommandConstant, eventLogger.formatter.formatCommandLabel(command)),
		)
		return
	}
	eventLogger.logger.Warn(
		eventLogger.formatter.BuildFailureMessage(command, result),
		zap.String(logFieldCommandConstant, eventLogger.formatter.formatCommandLabel(command)),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
		zap.String(logFieldStandardErrorConstant, RedactCredentials(result.StandardError)),
	)
}

func (eventLogger *structuredCommandEventLogger) CommandExecutionFailed(command ShellCommand, failure error) {
	eventLogger.logger.Error(
		eventLogger.formatter.BuildExecutionFailureMessage(command, failure),
		zap.String(logFieldCommandConstant, eventLogger.formatter.formatCommandLabel(command)),
	)
}
