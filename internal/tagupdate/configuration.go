package tagupdate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/temirov/tagpush/internal/gitrepo"
	"github.com/temirov/tagpush/internal/manifest"
	"github.com/temirov/tagpush/internal/tagging"
)

// Configuration keys recognised by the update command.
const (
	TargetPathKey       = "target_path"
	NewTagKey           = "new_tag"
	TagStringKey        = "tag_string"
	GitUserNameKey      = "git_user_name"
	GitUserEmailKey     = "git_user_email"
	GitHubTokenKey      = "github_token"
	RepositoryKey       = "repo"
	BranchKey           = "branch"
	CommitMessageKey    = "commit_message"
	TargetValuesFileKey = "target_values_file"
	FilePatternKey      = "file_pattern"
	TagPrefixKey        = "tag_prefix"
	TagSuffixKey        = "tag_suffix"
	UpdateIfContainsKey = "update_if_contains"
	SkipIfContainsKey   = "skip_if_contains"
	BackupKey           = "backup"
	DryRunKey           = "dry_run"
	DebugKey            = "debug"
	MaxRetriesKey       = "max_retries"
	RetryDelayKey       = "retry_delay"
	SummaryFileKey      = "summary_file"
	GitHubOutputKey     = "github_output"
	RemoteNameKey       = "remote_name"
	GitHostKey          = "git_host"

	defaultCommitMessageConstant        = "Update image tag"
	defaultMaxRetriesConstant           = 3
	defaultRetryDelayConstant           = 5 * time.Second
	defaultRemoteNameConstant           = "origin"
	defaultGitHostConstant              = "github.com"
	mapstructureTagNameConstant         = "mapstructure"
	mapstructureTagSeparatorConstant    = ","
	requiredValidationTagConstant       = "required"
	requiredFieldTemplateConstant       = "required field '%s' is not set"
	invalidFieldTemplateConstant        = "invalid value for field '%s'"
	missingFileSelectionMessageConstant = "either target_values_file or file_pattern must be set"
	conflictingSelectionMessageConstant = "cannot set both target_values_file and file_pattern, choose one"
	maxRetriesMessageConstant           = "max_retries must be at least 1"
	retryDelayMessageConstant           = "retry_delay must not be negative"
)

// ErrInvalidConfiguration is matched by every ConfigurationError.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigurationError reports a configuration violation.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

// Error returns the user-facing message.
func (configurationError ConfigurationError) Error() string {
	return configurationError.Message
}

// Is matches ErrInvalidConfiguration.
func (configurationError ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Unwrap exposes the underlying cause.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}

// Configuration captures the settings of an update run.
type Configuration struct {
	TargetPath       string        `mapstructure:"target_path" validate:"required"`
	NewTag           string        `mapstructure:"new_tag" validate:"required"`
	TagString        string        `mapstructure:"tag_string" validate:"required"`
	GitUserName      string        `mapstructure:"git_user_name" validate:"required"`
	GitUserEmail     string        `mapstructure:"git_user_email" validate:"required"`
	GitHubToken      string        `mapstructure:"github_token" validate:"required"`
	Repository       string        `mapstructure:"repo" validate:"required"`
	Branch           string        `mapstructure:"branch" validate:"required"`
	CommitMessage    string        `mapstructure:"commit_message"`
	TargetValuesFile string        `mapstructure:"target_values_file"`
	FilePattern      string        `mapstructure:"file_pattern"`
	TagPrefix        string        `mapstructure:"tag_prefix"`
	TagSuffix        string        `mapstructure:"tag_suffix"`
	UpdateIfContains string        `mapstructure:"update_if_contains"`
	SkipIfContains   string        `mapstructure:"skip_if_contains"`
	Backup           bool          `mapstructure:"backup"`
	DryRun           bool          `mapstructure:"dry_run"`
	Debug            bool          `mapstructure:"debug"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	SummaryFile      string        `mapstructure:"summary_file"`
	GitHubOutput     string        `mapstructure:"github_output"`
	RemoteName       string        `mapstructure:"remote_name"`
	GitHost          string        `mapstructure:"git_host"`
}

// DefaultConfiguration returns baseline values for optional settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		CommitMessage: defaultCommitMessageConstant,
		MaxRetries:    defaultMaxRetriesConstant,
		RetryDelay:    defaultRetryDelayConstant,
		RemoteName:    defaultRemoteNameConstant,
		GitHost:       defaultGitHostConstant,
	}
}

// DefaultConfigurationValues returns viper defaults for every key so that
// environment variables are honoured for keys absent from configuration files.
func DefaultConfigurationValues() map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		TargetPathKey:       "",
		NewTagKey:           "",
		TagStringKey:        "",
		GitUserNameKey:      "",
		GitUserEmailKey:     "",
		GitHubTokenKey:      "",
		RepositoryKey:       "",
		BranchKey:           "",
		CommitMessageKey:    defaults.CommitMessage,
		TargetValuesFileKey: "",
		FilePatternKey:      "",
		TagPrefixKey:        "",
		TagSuffixKey:        "",
		UpdateIfContainsKey: "",
		SkipIfContainsKey:   "",
		BackupKey:           false,
		DryRunKey:           false,
		DebugKey:            false,
		MaxRetriesKey:       defaults.MaxRetries,
		RetryDelayKey:       defaults.RetryDelay.String(),
		SummaryFileKey:      "",
		GitHubOutputKey:     "",
		RemoteNameKey:       defaults.RemoteName,
		GitHostKey:          defaults.GitHost,
	}
}

// Sanitize trims whitespace and restores defaults for blank optional values.
// Tag parts are kept verbatim so the composed tag is validated as given.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	defaults := DefaultConfiguration()

	sanitized.TargetPath = strings.TrimSpace(configuration.TargetPath)
	sanitized.TagString = strings.TrimSpace(configuration.TagString)
	sanitized.GitUserName = strings.TrimSpace(configuration.GitUserName)
	sanitized.GitUserEmail = strings.TrimSpace(configuration.GitUserEmail)
	sanitized.GitHubToken = strings.TrimSpace(configuration.GitHubToken)
	sanitized.Repository = strings.TrimSpace(configuration.Repository)
	sanitized.Branch = strings.TrimSpace(configuration.Branch)
	sanitized.TargetValuesFile = strings.TrimSpace(configuration.TargetValuesFile)
	sanitized.FilePattern = strings.TrimSpace(configuration.FilePattern)
	sanitized.SummaryFile = strings.TrimSpace(configuration.SummaryFile)
	sanitized.GitHubOutput = strings.TrimSpace(configuration.GitHubOutput)

	sanitized.CommitMessage = strings.TrimSpace(configuration.CommitMessage)
	if len(sanitized.CommitMessage) == 0 {
		sanitized.CommitMessage = defaults.CommitMessage
	}
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaults.RemoteName
	}
	sanitized.GitHost = strings.TrimSpace(configuration.GitHost)
	if len(sanitized.GitHost) == 0 {
		sanitized.GitHost = defaults.GitHost
	}
	return sanitized
}

// FinalTag composes the prefix, base tag, and suffix.
func (configuration Configuration) FinalTag() string {
	return tagging.ResolveFinalTag(configuration.NewTag, configuration.TagPrefix, configuration.TagSuffix)
}

// FileSelection returns the configured file selection mode.
func (configuration Configuration) FileSelection() manifest.FileSelection {
	return manifest.FileSelection{SingleFile: configuration.TargetValuesFile, Pattern: configuration.FilePattern}
}

// Validate checks required fields, the composed tag, the file selection mode, and numeric bounds.
func (configuration Configuration) Validate() error {
	if validationError := newConfigurationValidator().Struct(configuration); validationError != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(validationError, &fieldErrors) && len(fieldErrors) > 0 {
			return translateFieldError(fieldErrors[0])
		}
		return ConfigurationError{Message: validationError.Error(), Cause: validationError}
	}

	if tagError := tagging.ValidateTag(configuration.FinalTag()); tagError != nil {
		return ConfigurationError{Field: NewTagKey, Message: tagError.Error(), Cause: tagError}
	}

	if len(configuration.TargetValuesFile) == 0 && len(configuration.FilePattern) == 0 {
		return ConfigurationError{Field: TargetValuesFileKey, Message: missingFileSelectionMessageConstant}
	}
	if len(configuration.TargetValuesFile) > 0 && len(configuration.FilePattern) > 0 {
		return ConfigurationError{Field: FilePatternKey, Message: conflictingSelectionMessageConstant}
	}

	if _, parseError := gitrepo.ParseRepositoryIdentifier(configuration.GitHost, configuration.Repository); parseError != nil {
		return ConfigurationError{Field: RepositoryKey, Message: parseError.Error(), Cause: parseError}
	}

	if configuration.MaxRetries < 1 {
		return ConfigurationError{Field: MaxRetriesKey, Message: maxRetriesMessageConstant}
	}
	if configuration.RetryDelay < 0 {
		return ConfigurationError{Field: RetryDelayKey, Message: retryDelayMessageConstant}
	}
	return nil
}

func newConfigurationValidator() *validator.Validate {
	configurationValidator := validator.New(validator.WithRequiredStructEnabled())
	configurationValidator.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get(mapstructureTagNameConstant), mapstructureTagSeparatorConstant)
		return name
	})
	return configurationValidator
}

func translateFieldError(fieldError validator.FieldError) ConfigurationError {
	if fieldError.Tag() == requiredValidationTagConstant {
		return ConfigurationError{Field: fieldError.Field(), Message: fmt.Sprintf(requiredFieldTemplateConstant, fieldError.Field())}
	}
	return ConfigurationError{Field: fieldError.Field(), Message: fmt.Sprintf(invalidFieldTemplateConstant, fieldError.Field())}
}
