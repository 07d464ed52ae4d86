package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
)

const (
	gitConfigSubcommandNameConstant   = "config"
	gitFetchSubcommandNameConstant    = "fetch"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitPullSubcommandNameConstant     = "pull"
	gitPushSubcommandNameConstant     = "push"
	gitAddSubcommandNameConstant      = "add"
	gitCommitSubcommandNameConstant   = "commit"
	gitMessageFlagConstant            = "-m"
	gitNewBranchFlagConstant          = "-b"
)

const (
	gitConfigStartTemplateConstant              = "Setting git %s in %s"
	gitConfigSuccessTemplateConstant            = "Set git %s in %s"
	gitConfigFailureTemplateConstant            = "Failed to set git %s in %s (exit code %d%s)"
	gitConfigExecutionFailureTemplateConstant   = "Unable to set git %s in %s: %s"
	gitFetchStartTemplateConstant               = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant             = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant             = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant    = "Unable to fetch from %s in %s: %s"
	gitCheckoutStartTemplateConstant            = "Switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant          = "%s now on branch %s"
	gitCheckoutFailureTemplateConstant          = "Failed to switch %s to branch %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant = "Unable to switch %s to branch %s: %s"
	gitBranchCreationStartTemplateConstant      = "Creating branch %s in %s"
	gitBranchCreationSuccessTemplateConstant    = "Created branch %s in %s"
	gitBranchCreationFailureTemplateConstant    = "Failed to create branch %s in %s (exit code %d%s)"
	gitBranchCreationExecutionTemplateConstant  = "Unable to create branch %s in %s: %s"
	gitPullStartTemplateConstant                = "Pulling %s from %s in %s"
	gitPullSuccessTemplateConstant              = "Pulled %s from %s in %s"
	gitPullFailureTemplateConstant              = "Failed to pull %s from %s in %s (exit code %d%s)"
	gitPullExecutionFailureTemplateConstant     = "Unable to pull %s from %s in %s: %s"
	gitPushStartTemplateConstant                = "Pushing %s to %s from %s"
	gitPushSuccessTemplateConstant              = "Pushed %s to %s from %s"
	gitPushFailureTemplateConstant              = "Failed to push %s to %s from %s (exit code %d%s)"
	gitPushExecutionFailureTemplateConstant     = "Unable to push %s to %s from %s: %s"
	gitAddStartTemplateConstant                 = "Staging %s in %s"
	gitAddSuccessTemplateConstant               = "Staged %s in %s"
	gitAddFailureTemplateConstant               = "Failed to stage %s in %s (exit code %d%s)"
	gitAddExecutionFailureTemplateConstant      = "Unable to stage %s in %s: %s"
	gitCommitStartTemplateConstant              = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant            = "Created commit in %s with message %q"
	gitCommitFailureTemplateConstant            = "Failed to create commit in %s with message %q (exit code %d%s)"
	gitCommitExecutionFailureTemplateConstant   = "Unable to create commit in %s with message %q: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	templates, values, described := formatter.describeGitCommand(command)
	if !described {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		failureValues := append(append([]any{}, values...), result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(templates.failure, failureValues...)
	case messageStageExecutionFailure:
		executionFailureValues := append(append([]any{}, values...), RedactCredentials(formatter.describeFailure(failure)))
		return fmt.Sprintf(templates.executionFailure, executionFailureValues...)
	default:
		return emptyStringConstant
	}
}

type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

func (formatter CommandMessageFormatter) describeGitCommand(command ShellCommand) (stageTemplates, []any, bool) {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	subcommand := strings.TrimSpace(arguments[0])
	positional := formatter.positionalArguments(arguments[1:])

	switch subcommand {
	case gitConfigSubcommandNameConstant:
		if len(positional) < 2 {
			return stageTemplates{}, nil, false
		}
		return stageTemplates{
			start:            gitConfigStartTemplateConstant,
			success:          gitConfigSuccessTemplateConstant,
			failure:          gitConfigFailureTemplateConstant,
			executionFailure: gitConfigExecutionFailureTemplateConstant,
		}, []any{positional[0], workingDirectory}, true
	case gitFetchSubcommandNameConstant:
		return stageTemplates{
			start:            gitFetchStartTemplateConstant,
			success:          gitFetchSuccessTemplateConstant,
			failure:          gitFetchFailureTemplateConstant,
			executionFailure: gitFetchExecutionFailureTemplateConstant,
		}, []any{formatter.valueAt(positional, 0), workingDirectory}, true
	case gitCheckoutSubcommandNameConstant:
		if containsArgument(arguments, gitNewBranchFlagConstant) {
			branchName := formatter.flagValue(arguments, gitNewBranchFlagConstant)
			return stageTemplates{
				start:            gitBranchCreationStartTemplateConstant,
				success:          gitBranchCreationSuccessTemplateConstant,
				failure:          gitBranchCreationFailureTemplateConstant,
				executionFailure: gitBranchCreationExecutionTemplateConstant,
			}, []any{formatter.ensureValue(branchName), workingDirectory}, true
		}
		return stageTemplates{
			start:            gitCheckoutStartTemplateConstant,
			success:          gitCheckoutSuccessTemplateConstant,
			failure:          gitCheckoutFailureTemplateConstant,
			executionFailure: gitCheckoutExecutionFailureTemplateConstant,
		}, []any{workingDirectory, formatter.valueAt(positional, 0)}, true
	case gitPullSubcommandNameConstant:
		return stageTemplates{
			start:            gitPullStartTemplateConstant,
			success:          gitPullSuccessTemplateConstant,
			failure:          gitPullFailureTemplateConstant,
			executionFailure: gitPullExecutionFailureTemplateConstant,
		}, []any{formatter.valueAt(positional, 1), formatter.valueAt(positional, 0), workingDirectory}, true
	case gitPushSubcommandNameConstant:
		return stageTemplates{
			start:            gitPushStartTemplateConstant,
			success:          gitPushSuccessTemplateConstant,
			failure:          gitPushFailureTemplateConstant,
			executionFailure: gitPushExecutionFailureTemplateConstant,
		}, []any{formatter.valueAt(positional, 1), RedactCredentials(formatter.valueAt(positional, 0)), workingDirectory}, true
	case gitAddSubcommandNameConstant:
		return stageTemplates{
			start:            gitAddStartTemplateConstant,
			success:          gitAddSuccessTemplateConstant,
			failure:          gitAddFailureTemplateConstant,
			executionFailure: gitAddExecutionFailureTemplateConstant,
		}, []any{formatter.valueAt(positional, 0), workingDirectory}, true
	case gitCommitSubcommandNameConstant:
		return stageTemplates{
			start:            gitCommitStartTemplateConstant,
			success:          gitCommitSuccessTemplateConstant,
			failure:          gitCommitFailureTemplateConstant,
			executionFailure: gitCommitExecutionFailureTemplateConstant,
		}, []any{workingDirectory, formatter.ensureValue(formatter.flagValue(arguments, gitMessageFlagConstant))}, true
	default:
		return stageTemplates{}, nil, false
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, RedactCredentials(formatter.describeFailure(failure)))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		redactedArguments := RedactArguments(command.Details.Arguments)
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(redactedArguments, commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, RedactCredentials(trimmedStandardError))
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	skipNext := false
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if skipNext {
			skipNext = false
			continue
		}
		if len(trimmed) == 0 {
			continue
		}
		if trimmed == gitMessageFlagConstant || trimmed == gitNewBranchFlagConstant {
			skipNext = true
			continue
		}
		if strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		positional = append(positional, trimmed)
	}
	return positional
}

func (formatter CommandMessageFormatter) valueAt(values []string, index int) string {
	if index >= 0 && index < len(values) {
		return formatter.ensureValue(values[index])
	}
	return fallbackUnknownValueLabelConstant
}

func (formatter CommandMessageFormatter) flagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
