package tagupdate

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tagpush/internal/execshell"
	"github.com/temirov/tagpush/internal/shared"
	"github.com/temirov/tagpush/internal/summary"
	"github.com/temirov/tagpush/internal/ui"
	"github.com/temirov/tagpush/internal/utils"
	pathutils "github.com/temirov/tagpush/internal/utils/path"
)

const (
	updateCommandUseConstant              = "update"
	updateCommandShortDescriptionConstant = "Update the image tag in target files and push the change"
	updateCommandLongDescriptionConstant  = "update rewrites the configured tag key in the selected files, commits the result to the target branch, and pushes it with retries. Settings come from the configuration file and environment variables such as TARGET_PATH, NEW_TAG, and TAG_STRING."
	historyCommandUseConstant             = "history"
	historyCommandShortDescriptionConst   = "Show recorded update runs"
	historyCommandLongDescriptionConstant = "history prints the change summaries stored in the configured summary file, oldest first."
	dryRunFlagNameConstant                = "dry-run"
	dryRunFlagUsageConstant               = "Report the changes without writing, committing, or pushing."
	backupFlagNameConstant                = "backup"
	backupFlagUsageConstant               = "Write a .bak copy of every file before updating it."
	targetValuesFileFlagNameConstant      = "file"
	targetValuesFileFlagUsageConstant     = "Single file to update, relative to the target path."
	filePatternFlagNameConstant           = "pattern"
	filePatternFlagUsageConstant          = "Glob pattern selecting files to update, relative to the target path."
	limitFlagNameConstant                 = "limit"
	limitFlagUsageConstant                = "Show only the most recent N runs (0 shows all)."
	summaryFileFlagNameConstant           = "summary-file"
	summaryFileFlagUsageConstant          = "Change log to read instead of the configured summary file."
	missingSummaryFileMessageConstant     = "summary_file is not configured"
	historyCommandSummaryFieldConstant    = "summary_file"
	historyLoadedMessageConstant          = "Loaded change log"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded update configuration.
type ConfigurationProvider func() Configuration

// CommandBuilder assembles the update and history commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	FileSystem                   shared.FileSystem
	Sleeper                      shared.Sleeper
	Clock                        shared.Clock
	WorkingDirectory             string
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        ConfigurationProvider
}

// Build constructs the update command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           updateCommandUseConstant,
		Short:         updateCommandShortDescriptionConstant,
		Long:          updateCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.RunUpdate,
	}
	builder.BindUpdateFlags(command)
	return command, nil
}

// BuildHistory constructs the history command.
func (builder *CommandBuilder) BuildHistory() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           historyCommandUseConstant,
		Short:         historyCommandShortDescriptionConst,
		Long:          historyCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runHistory,
	}
	command.Flags().Int(limitFlagNameConstant, 0, limitFlagUsageConstant)
	command.Flags().String(summaryFileFlagNameConstant, "", summaryFileFlagUsageConstant)
	return command, nil
}

// BindUpdateFlags registers the update flags on a command so the root command can run updates too.
func (builder *CommandBuilder) BindUpdateFlags(command *cobra.Command) {
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagUsageConstant)
	command.Flags().Bool(backupFlagNameConstant, false, backupFlagUsageConstant)
	command.Flags().String(targetValuesFileFlagNameConstant, "", targetValuesFileFlagUsageConstant)
	command.Flags().String(filePatternFlagNameConstant, "", filePatternFlagUsageConstant)
}

// RunUpdate executes an update run using the configured settings and flag overrides.
func (builder *CommandBuilder) RunUpdate(command *cobra.Command, arguments []string) error {
	configuration := builder.applyFlagOverrides(command, builder.resolveConfiguration())

	logger := builder.resolveLogger()
	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return executorError
	}

	service, serviceError := NewService(Dependencies{
		Logger:           logger,
		FileSystem:       builder.resolveFileSystem(),
		GitExecutor:      executor,
		Sleeper:          builder.Sleeper,
		Clock:            builder.Clock,
		Reporter:         shared.NewWriterReporter(command.OutOrStdout()),
		WorkingDirectory: builder.resolveWorkingDirectory(),
	})
	if serviceError != nil {
		return serviceError
	}

	contextAccessor := utils.NewCommandContextAccessor()
	executionContext := command.Context()
	if existingIdentifier, available := contextAccessor.RunIdentifier(executionContext); !available || len(existingIdentifier) == 0 {
		executionContext = contextAccessor.WithRunIdentifier(executionContext, uuid.NewString())
	}

	_, runError := service.Run(executionContext, configuration)
	return runError
}

func (builder *CommandBuilder) runHistory(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	summaryPath := configuration.SummaryFile
	if command.Flags().Changed(summaryFileFlagNameConstant) {
		summaryPath, _ = command.Flags().GetString(summaryFileFlagNameConstant)
	}
	summaryPath = strings.TrimSpace(summaryPath)
	if len(summaryPath) == 0 {
		return ConfigurationError{Field: SummaryFileKey, Message: missingSummaryFileMessageConstant}
	}

	baseDirectory := builder.resolveWorkingDirectory()
	if len(configuration.TargetPath) > 0 && !command.Flags().Changed(summaryFileFlagNameConstant) {
		baseDirectory = pathutils.NewResolver(baseDirectory).Resolve(configuration.TargetPath)
	}
	resolvedPath := pathutils.NewResolver(baseDirectory).Resolve(summaryPath)

	logger := builder.resolveLogger()
	store, storeError := summary.NewStore(builder.resolveFileSystem(), logger, resolvedPath)
	if storeError != nil {
		return storeError
	}
	records, loadError := store.Load()
	if loadError != nil {
		return loadError
	}
	logger.Debug(historyLoadedMessageConstant, zap.String(historyCommandSummaryFieldConstant, resolvedPath))

	limit, _ := command.Flags().GetInt(limitFlagNameConstant)
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return summary.RenderHistory(command.OutOrStdout(), records)
}

func (builder *CommandBuilder) applyFlagOverrides(command *cobra.Command, configuration Configuration) Configuration {
	if command == nil {
		return configuration
	}
	flags := command.Flags()
	if flags.Lookup(dryRunFlagNameConstant) != nil && flags.Changed(dryRunFlagNameConstant) {
		configuration.DryRun, _ = flags.GetBool(dryRunFlagNameConstant)
	}
	if flags.Lookup(backupFlagNameConstant) != nil && flags.Changed(backupFlagNameConstant) {
		configuration.Backup, _ = flags.GetBool(backupFlagNameConstant)
	}
	if flags.Lookup(targetValuesFileFlagNameConstant) != nil && flags.Changed(targetValuesFileFlagNameConstant) {
		configuration.TargetValuesFile, _ = flags.GetString(targetValuesFileFlagNameConstant)
		configuration.FilePattern = ""
	}
	if flags.Lookup(filePatternFlagNameConstant) != nil && flags.Changed(filePatternFlagNameConstant) {
		configuration.FilePattern, _ = flags.GetString(filePatternFlagNameConstant)
		if !flags.Changed(targetValuesFileFlagNameConstant) {
			configuration.TargetValuesFile = ""
		}
	}
	return configuration
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (shared.GitExecutor, error) {
	if builder.GitExecutor != nil {
		return builder.GitExecutor, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	var shellExecutor *execshell.ShellExecutor
	var creationError error
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		shellExecutor, creationError = execshell.NewObservedShellExecutor(commandRunner, ui.NewConsoleCommandEventLogger(logger))
	} else {
		shellExecutor, creationError = execshell.NewShellExecutor(logger, commandRunner)
	}
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

func (builder *CommandBuilder) resolveFileSystem() shared.FileSystem {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return shared.OSFileSystem{}
}

func (builder *CommandBuilder) resolveWorkingDirectory() string {
	if len(builder.WorkingDirectory) > 0 {
		return builder.WorkingDirectory
	}
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return ""
	}
	return workingDirectory
}
