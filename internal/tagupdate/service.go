package tagupdate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/tagpush/internal/gitrepo"
	"github.com/temirov/tagpush/internal/gitsync"
	"github.com/temirov/tagpush/internal/manifest"
	"github.com/temirov/tagpush/internal/outputs"
	"github.com/temirov/tagpush/internal/shared"
	"github.com/temirov/tagpush/internal/summary"
	"github.com/temirov/tagpush/internal/utils"
	pathutils "github.com/temirov/tagpush/internal/utils/path"
)

const (
	commitMessageTemplateConstant       = "%s %s (%s)"
	targetPathNotDirectoryTemplate      = "target path %s is not a directory"
	targetPathInspectionErrorTemplate   = "unable to inspect target path %s: %v"
	repositoryManagerErrorTemplate      = "unable to construct repository manager: %w"
	synchronizerErrorTemplate           = "unable to construct git synchronizer: %w"
	updaterErrorTemplate                = "unable to construct file updater: %w"
	fileSelectionErrorTemplate          = "file selection failed: %w"
	fileProcessingErrorTemplate         = "unable to update %s: %w"
	missingFileSystemMessageConstant    = "filesystem not configured"
	missingGitExecutorMessageConstant   = "git executor not configured"
	configurationBannerMessageConstant  = "Configuration"
	directoryListingMessageConstant     = "Target directory entry"
	directoryListingFailedMessage       = "Unable to list target directory"
	noFilesMatchedMessageConstant       = "No files matched pattern"
	fileFailedMessageConstant           = "File update failed, continuing with remaining files"
	previewCompletedMessageConstant     = "Dry run completed. No changes were made."
	noChangesNeededMessageConstant      = "No changes needed. Values are already up to date."
	nothingToPushMessageConstant        = "No changes to commit. Nothing to push."
	summaryPersistFailedMessageConstant = "Failed to write change summary"
	outputsWriteFailedMessageConstant   = "Failed to write CI outputs"
	runCompletedMessageConstant         = "Update run completed"
	runIdentifierLogFieldConstant       = "run_id"
	pathLogFieldConstant                = "path"
	tagLogFieldConstant                 = "tag"
	branchLogFieldConstant              = "branch"
	dryRunLogFieldConstant              = "dry_run"
	fileLogFieldConstant                = "file"
	patternLogFieldConstant             = "pattern"
	entryLogFieldConstant               = "entry"
	changedFilesLogFieldConstant        = "changed_files"
	commitLogFieldConstant              = "commit"
	branchStateLogFieldConstant         = "branch_state"
)

// ErrServiceNotConfigured indicates missing service dependencies.
var ErrServiceNotConfigured = errors.New("update service not configured")

// RunIdentifierProvider generates identifiers for update runs.
type RunIdentifierProvider func() string

// Dependencies enumerates collaborators required by the update service.
type Dependencies struct {
	Logger                *zap.Logger
	FileSystem            shared.FileSystem
	GitExecutor           shared.GitExecutor
	Sleeper               shared.Sleeper
	Clock                 shared.Clock
	Reporter              shared.Reporter
	RunIdentifierProvider RunIdentifierProvider
	WorkingDirectory      string
}

// RunResult describes the outcome of an update run.
type RunResult struct {
	RunIdentifier string
	FinalTag      string
	BranchState   gitsync.BranchState
	Files         []manifest.FileResult
	FailedFiles   []string
	ChangedFiles  []string
	OldTags       map[string]string
	Commit        gitsync.CommitResult
	Pushed        bool
	Record        summary.Record
}

// Service executes update runs.
type Service struct {
	logger                *zap.Logger
	fileSystem            shared.FileSystem
	synchronizer          *gitsync.Service
	clock                 shared.Clock
	reporter              shared.Reporter
	runIdentifierProvider RunIdentifierProvider
	workingDirectory      string
	contextAccessor       utils.CommandContextAccessor
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotConfigured, missingFileSystemMessageConstant)
	}
	if dependencies.GitExecutor == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotConfigured, missingGitExecutorMessageConstant)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(dependencies.GitExecutor)
	if managerError != nil {
		return nil, fmt.Errorf(repositoryManagerErrorTemplate, managerError)
	}
	synchronizer, synchronizerError := gitsync.NewService(gitsync.Dependencies{
		GitExecutor:       dependencies.GitExecutor,
		RepositoryManager: repositoryManager,
		Sleeper:           dependencies.Sleeper,
		Logger:            logger,
	})
	if synchronizerError != nil {
		return nil, fmt.Errorf(synchronizerErrorTemplate, synchronizerError)
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	reporter := dependencies.Reporter
	if reporter == nil {
		reporter = shared.NewWriterReporter(os.Stdout)
	}
	runIdentifierProvider := dependencies.RunIdentifierProvider
	if runIdentifierProvider == nil {
		runIdentifierProvider = uuid.NewString
	}

	return &Service{
		logger:                logger,
		fileSystem:            dependencies.FileSystem,
		synchronizer:          synchronizer,
		clock:                 clock,
		reporter:              reporter,
		runIdentifierProvider: runIdentifierProvider,
		workingDirectory:      dependencies.WorkingDirectory,
		contextAccessor:       utils.NewCommandContextAccessor(),
	}, nil
}

// Run validates the configuration and performs one update run.
func (service *Service) Run(executionContext context.Context, configuration Configuration) (RunResult, error) {
	configuration = configuration.Sanitize()
	if validationError := configuration.Validate(); validationError != nil {
		return RunResult{}, validationError
	}

	runIdentifier, identifierAvailable := service.contextAccessor.RunIdentifier(executionContext)
	if !identifierAvailable || len(runIdentifier) == 0 {
		runIdentifier = service.runIdentifierProvider()
	}
	logger := service.logger.With(zap.String(runIdentifierLogFieldConstant, runIdentifier))
	result := RunResult{RunIdentifier: runIdentifier, FinalTag: configuration.FinalTag(), OldTags: map[string]string{}}

	workingDirectoryResolver := pathutils.NewResolver(service.workingDirectory)
	targetPath := workingDirectoryResolver.Resolve(configuration.TargetPath)
	if targetError := service.ensureDirectory(targetPath); targetError != nil {
		return result, targetError
	}
	targetResolver := pathutils.NewResolver(targetPath)

	service.logBanner(logger, configuration, targetPath, result.FinalTag)
	if configuration.Debug {
		service.logDirectoryListing(logger, targetPath)
	}

	remote, remoteError := gitrepo.ParseRepositoryIdentifier(configuration.GitHost, configuration.Repository)
	if remoteError != nil {
		return result, ConfigurationError{Field: RepositoryKey, Message: remoteError.Error(), Cause: remoteError}
	}

	identity := gitsync.Identity{Name: configuration.GitUserName, Email: configuration.GitUserEmail}
	if identityError := service.synchronizer.ConfigureIdentity(executionContext, targetPath, identity); identityError != nil {
		return result, identityError
	}
	if fetchError := service.synchronizer.Fetch(executionContext, targetPath, configuration.RemoteName); fetchError != nil {
		return result, fetchError
	}
	branchState, synchronizeError := service.synchronizer.SynchronizeBranch(executionContext, targetPath, configuration.RemoteName, configuration.Branch)
	result.BranchState = branchState
	if synchronizeError != nil {
		return result, synchronizeError
	}

	if processError := service.processFiles(logger, configuration, targetPath, &result); processError != nil {
		return result, processError
	}

	switch {
	case configuration.DryRun:
		logger.Info(previewCompletedMessageConstant)
	case len(result.ChangedFiles) == 0:
		logger.Info(noChangesNeededMessageConstant)
	default:
		commitMessage := fmt.Sprintf(commitMessageTemplateConstant, configuration.CommitMessage, configuration.TargetPath, configuration.FileSelection().Describe())
		commitResult, commitError := service.synchronizer.Commit(executionContext, targetPath, commitMessage)
		result.Commit = commitResult
		if commitError != nil {
			return result, commitError
		}
		if !commitResult.Committed {
			logger.Info(nothingToPushMessageConstant)
			break
		}
		pushError := service.synchronizer.PushWithRetry(executionContext, targetPath, gitsync.PushRequest{
			Remote:      remote,
			Token:       configuration.GitHubToken,
			Branch:      configuration.Branch,
			MaxAttempts: configuration.MaxRetries,
			RetryDelay:  configuration.RetryDelay,
		})
		if pushError != nil {
			return result, pushError
		}
		result.Pushed = true
	}

	result.Record = summary.BuildRecord(summary.RecordInput{
		RunIdentifier: runIdentifier,
		Time:          service.clock.Now(),
		Repository:    configuration.Repository,
		Branch:        configuration.Branch,
		CommitSHA:     result.Commit.Revision,
		TargetPath:    configuration.TargetPath,
		KeyName:       configuration.TagString,
		FinalTag:      result.FinalTag,
		DryRun:        configuration.DryRun,
		UpdatedFiles:  result.ChangedFiles,
		OldTags:       result.OldTags,
	})

	if renderedSummary := summary.Render(result.Record); len(renderedSummary) > 0 {
		service.reporter.Printf("%s", renderedSummary)
	}
	service.persistRecord(logger, targetResolver.Resolve(configuration.SummaryFile), result.Record)
	service.writeOutputs(logger, workingDirectoryResolver.Resolve(configuration.GitHubOutput), result)

	logger.Info(runCompletedMessageConstant,
		zap.Strings(changedFilesLogFieldConstant, result.ChangedFiles),
		zap.String(commitLogFieldConstant, result.Commit.Revision),
		zap.String(branchStateLogFieldConstant, string(result.BranchState)))
	return result, nil
}

func (service *Service) processFiles(logger *zap.Logger, configuration Configuration, targetPath string, result *RunResult) error {
	selection := configuration.FileSelection()
	selectedFiles, selectionError := manifest.SelectFiles(service.fileSystem, targetPath, selection)
	if selectionError != nil {
		if !errors.Is(selectionError, manifest.ErrNoFilesMatched) {
			return fmt.Errorf(fileSelectionErrorTemplate, selectionError)
		}
		logger.Warn(noFilesMatchedMessageConstant, zap.String(patternLogFieldConstant, selection.Pattern))
	}

	updater, updaterError := manifest.NewUpdater(service.fileSystem, logger, manifest.UpdaterOptions{
		KeyName:          configuration.TagString,
		FinalTag:         result.FinalTag,
		IncludeSubstring: configuration.UpdateIfContains,
		ExcludeSubstring: configuration.SkipIfContains,
		Preview:          configuration.DryRun,
		Backup:           configuration.Backup,
	})
	if updaterError != nil {
		return fmt.Errorf(updaterErrorTemplate, updaterError)
	}

	singleFileMode := len(selection.SingleFile) > 0
	for _, selectedFile := range selectedFiles {
		fileResult, processError := updater.Process(selectedFile)
		if processError != nil {
			if singleFileMode {
				return processError
			}
			logger.Warn(fileFailedMessageConstant, zap.String(fileLogFieldConstant, selectedFile.DisplayPath), zap.Error(fmt.Errorf(fileProcessingErrorTemplate, selectedFile.DisplayPath, processError)))
			result.FailedFiles = append(result.FailedFiles, selectedFile.DisplayPath)
			continue
		}
		result.Files = append(result.Files, fileResult)
		if fileResult.Changed {
			result.ChangedFiles = append(result.ChangedFiles, selectedFile.DisplayPath)
			result.OldTags[selectedFile.DisplayPath] = fileResult.CurrentValue
		}
	}
	return nil
}

func (service *Service) ensureDirectory(targetPath string) error {
	fileInfo, statError := service.fileSystem.Stat(targetPath)
	if statError != nil {
		return ConfigurationError{Field: TargetPathKey, Message: fmt.Sprintf(targetPathInspectionErrorTemplate, targetPath, statError), Cause: statError}
	}
	if !fileInfo.IsDir() {
		return ConfigurationError{Field: TargetPathKey, Message: fmt.Sprintf(targetPathNotDirectoryTemplate, targetPath)}
	}
	return nil
}

func (service *Service) logBanner(logger *zap.Logger, configuration Configuration, targetPath string, finalTag string) {
	fields := []zap.Field{
		zap.String(pathLogFieldConstant, targetPath),
		zap.String(tagLogFieldConstant, finalTag),
		zap.String(branchLogFieldConstant, configuration.Branch),
		zap.Bool(dryRunLogFieldConstant, configuration.DryRun),
	}
	if len(configuration.TargetValuesFile) > 0 {
		fields = append(fields, zap.String(fileLogFieldConstant, configuration.TargetValuesFile))
	}
	if len(configuration.FilePattern) > 0 {
		fields = append(fields, zap.String(patternLogFieldConstant, configuration.FilePattern))
	}
	logger.Info(configurationBannerMessageConstant, fields...)
}

func (service *Service) logDirectoryListing(logger *zap.Logger, targetPath string) {
	entries, listError := service.fileSystem.ReadDir(targetPath)
	if listError != nil {
		logger.Debug(directoryListingFailedMessage, zap.String(pathLogFieldConstant, targetPath), zap.Error(listError))
		return
	}
	for _, entry := range entries {
		logger.Debug(directoryListingMessageConstant, zap.String(entryLogFieldConstant, entry.Name()))
	}
}

func (service *Service) persistRecord(logger *zap.Logger, summaryPath string, record summary.Record) {
	if len(summaryPath) == 0 || record.ChangesCount == 0 {
		return
	}
	store, storeError := summary.NewStore(service.fileSystem, logger, summaryPath)
	if storeError == nil {
		storeError = store.Persist(record)
	}
	if storeError != nil {
		logger.Warn(summaryPersistFailedMessageConstant, zap.String(pathLogFieldConstant, summaryPath), zap.Error(storeError))
	}
}

func (service *Service) writeOutputs(logger *zap.Logger, outputPath string, result RunResult) {
	writer, writerError := outputs.NewWriter(service.fileSystem, outputPath)
	if writerError == nil {
		oldTags := make([]string, 0, len(result.ChangedFiles))
		for _, changedFile := range result.ChangedFiles {
			oldTags = append(oldTags, result.OldTags[changedFile])
		}
		writerError = writer.Write(outputs.Result{
			ChangedFiles: result.ChangedFiles,
			OldTags:      oldTags,
			FinalTag:     result.FinalTag,
			CommitSHA:    result.Commit.Revision,
		})
	}
	if writerError != nil {
		logger.Warn(outputsWriteFailedMessageConstant, zap.String(pathLogFieldConstant, outputPath), zap.Error(writerError))
	}
}
