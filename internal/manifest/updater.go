package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/tagpush/internal/shared"
)

const (
	backupSuffixConstant            = ".bak"
	readFileErrorTemplateConstant   = "unable to read %s: %w"
	writeFileErrorTemplateConstant  = "unable to write %s: %w"
	updaterMissingFileSystemMessage = "file updater requires a filesystem"
	updaterMissingKeyMessage        = "file updater requires a key name"
	keyMissingLogMessageConstant    = "Key not found in file"
	fileSkippedLogMessageConstant   = "Skipping file"
	previewLogMessageConstant       = "Would update file"
	fileUpdatedLogMessageConstant   = "Updated file"
	backupCreatedLogMessageConstant = "Created backup"
	backupFailedLogMessageConstant  = "Unable to create backup"
	yamlBrokenLogMessageConstant    = "Updated file is no longer valid YAML"
	fileLogFieldConstant            = "file"
	keyLogFieldConstant             = "key"
	reasonLogFieldConstant          = "reason"
	currentValueLogFieldConstant    = "current_value"
	finalTagLogFieldConstant        = "final_tag"
	backupLogFieldConstant          = "backup"
	yamlExtensionConstant           = ".yaml"
	ymlExtensionConstant            = ".yml"
)

// ErrUpdaterNotConfigured indicates missing updater dependencies.
var ErrUpdaterNotConfigured = errors.New("file updater not configured")

// UpdaterOptions configure how files are rewritten.
type UpdaterOptions struct {
	KeyName          string
	FinalTag         string
	IncludeSubstring string
	ExcludeSubstring string
	Preview          bool
	Backup           bool
}

// FileResult summarizes the outcome for a single file.
type FileResult struct {
	File         SelectedFile
	KeyFound     bool
	CurrentValue string
	FinalTag     string
	Decision     SkipDecision
	Changed      bool
	Written      bool
	BackupPath   string
}

// Updater rewrites tag values inside individual files.
type Updater struct {
	fileSystem shared.FileSystem
	logger     *zap.Logger
	options    UpdaterOptions
}

// NewUpdater validates dependencies and constructs an Updater.
func NewUpdater(fileSystem shared.FileSystem, logger *zap.Logger, options UpdaterOptions) (*Updater, error) {
	if fileSystem == nil {
		return nil, fmt.Errorf("%w: %s", ErrUpdaterNotConfigured, updaterMissingFileSystemMessage)
	}
	if len(strings.TrimSpace(options.KeyName)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUpdaterNotConfigured, updaterMissingKeyMessage)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{fileSystem: fileSystem, logger: logger, options: options}, nil
}

// Process evaluates one file and rewrites it unless a skip rule applies.
// In preview mode a would-be change is reported as changed without writing.
func (updater *Updater) Process(file SelectedFile) (FileResult, error) {
	result := FileResult{File: file, FinalTag: updater.options.FinalTag}

	fileInfo, statError := updater.fileSystem.Stat(file.Path)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return result, FileNotFoundError{Path: file.DisplayPath}
		}
		return result, fmt.Errorf(readFileErrorTemplateConstant, file.DisplayPath, statError)
	}

	contentBytes, readError := updater.fileSystem.ReadFile(file.Path)
	if readError != nil {
		return result, fmt.Errorf(readFileErrorTemplateConstant, file.DisplayPath, readError)
	}
	contents := string(contentBytes)

	result.KeyFound = ContainsKey(contents, updater.options.KeyName)
	if !result.KeyFound {
		updater.logger.Warn(keyMissingLogMessageConstant,
			zap.String(fileLogFieldConstant, file.DisplayPath),
			zap.String(keyLogFieldConstant, updater.options.KeyName))
	}

	result.CurrentValue, _ = ExtractCurrentValue(contents, updater.options.KeyName)
	result.Decision = EvaluateSkip(result.CurrentValue, updater.options.FinalTag, updater.options.IncludeSubstring, updater.options.ExcludeSubstring)
	if result.Decision.Skip {
		updater.logger.Info(fileSkippedLogMessageConstant,
			zap.String(fileLogFieldConstant, file.DisplayPath),
			zap.String(reasonLogFieldConstant, string(result.Decision.Reason)),
			zap.String(currentValueLogFieldConstant, result.CurrentValue))
		return result, nil
	}

	if updater.options.Preview {
		result.Changed = true
		updater.logger.Info(previewLogMessageConstant,
			zap.String(fileLogFieldConstant, file.DisplayPath),
			zap.String(currentValueLogFieldConstant, result.CurrentValue),
			zap.String(finalTagLogFieldConstant, updater.options.FinalTag))
		return result, nil
	}

	if updater.options.Backup {
		backupPath, backupError := updater.createBackup(file.Path, contentBytes, fileInfo)
		if backupError != nil {
			updater.logger.Warn(backupFailedLogMessageConstant,
				zap.String(fileLogFieldConstant, file.DisplayPath),
				zap.Error(backupError))
		} else {
			result.BackupPath = backupPath
			updater.logger.Debug(backupCreatedLogMessageConstant, zap.String(backupLogFieldConstant, backupPath))
		}
	}

	updatedContents := ApplyUpdate(contents, updater.options.KeyName, updater.options.FinalTag)
	if isYAMLFile(file.Path) && isWellFormedYAML(contentBytes) && !isWellFormedYAML([]byte(updatedContents)) {
		updater.logger.Warn(yamlBrokenLogMessageConstant, zap.String(fileLogFieldConstant, file.DisplayPath))
	}

	if writeError := updater.fileSystem.WriteFile(file.Path, []byte(updatedContents), fileInfo.Mode().Perm()); writeError != nil {
		return result, fmt.Errorf(writeFileErrorTemplateConstant, file.DisplayPath, writeError)
	}

	result.Changed = true
	result.Written = true
	updater.logger.Info(fileUpdatedLogMessageConstant,
		zap.String(fileLogFieldConstant, file.DisplayPath),
		zap.String(currentValueLogFieldConstant, result.CurrentValue),
		zap.String(finalTagLogFieldConstant, updater.options.FinalTag))
	return result, nil
}

// createBackup copies the original next to it with the same permissions and
// modification time. A backup whose metadata cannot be applied is removed.
func (updater *Updater) createBackup(path string, contents []byte, fileInfo fs.FileInfo) (string, error) {
	backupPath := path + backupSuffixConstant
	if writeError := updater.fileSystem.WriteFile(backupPath, contents, fileInfo.Mode().Perm()); writeError != nil {
		return "", writeError
	}
	if chmodError := updater.fileSystem.Chmod(backupPath, fileInfo.Mode().Perm()); chmodError != nil {
		return "", updater.discardBackup(backupPath, chmodError)
	}
	if chtimesError := updater.fileSystem.Chtimes(backupPath, fileInfo.ModTime(), fileInfo.ModTime()); chtimesError != nil {
		return "", updater.discardBackup(backupPath, chtimesError)
	}
	return backupPath, nil
}

func (updater *Updater) discardBackup(backupPath string, cause error) error {
	if removeError := updater.fileSystem.Remove(backupPath); removeError != nil {
		return errors.Join(cause, removeError)
	}
	return cause
}

func isYAMLFile(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	return extension == yamlExtensionConstant || extension == ymlExtensionConstant
}

func isWellFormedYAML(contents []byte) bool {
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	for {
		var document yaml.Node
		decodeError := decoder.Decode(&document)
		if errors.Is(decodeError, io.EOF) {
			return true
		}
		if decodeError != nil {
			return false
		}
	}
}
