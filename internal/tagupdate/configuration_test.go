package tagupdate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tagpush/internal/tagging"
	"github.com/temirov/tagpush/internal/tagupdate"
)

func validConfiguration() tagupdate.Configuration {
	configuration := tagupdate.DefaultConfiguration()
	configuration.TargetPath = "charts"
	configuration.NewTag = "1.2.3"
	configuration.TagString = "tag"
	configuration.GitUserName = "Release Bot"
	configuration.GitUserEmail = "bot@example.com"
	configuration.GitHubToken = "ghs_token"
	configuration.Repository = "acme/charts"
	configuration.Branch = "deploy"
	configuration.TargetValuesFile = "values.yaml"
	return configuration
}

func TestConfigurationValidate(testInstance *testing.T) {
	testCases := []struct {
		name            string
		mutate          func(configuration *tagupdate.Configuration)
		expectedField   string
		expectedMessage string
	}{
		{
			name:   "valid",
			mutate: func(configuration *tagupdate.Configuration) {},
		},
		{
			name:            "missing_target_path",
			mutate:          func(configuration *tagupdate.Configuration) { configuration.TargetPath = "" },
			expectedField:   "target_path",
			expectedMessage: "required field 'target_path' is not set",
		},
		{
			name:            "missing_new_tag_reported_before_later_fields",
			mutate:          func(configuration *tagupdate.Configuration) { configuration.NewTag = ""; configuration.Branch = "" },
			expectedField:   "new_tag",
			expectedMessage: "required field 'new_tag' is not set",
		},
		{
			name:            "missing_token",
			mutate:          func(configuration *tagupdate.Configuration) { configuration.GitHubToken = "" },
			expectedField:   "github_token",
			expectedMessage: "required field 'github_token' is not set",
		},
		{
			name:          "invalid_final_tag",
			mutate:        func(configuration *tagupdate.Configuration) { configuration.TagPrefix = "-" },
			expectedField: "new_tag",
		},
		{
			name:            "no_file_selection",
			mutate:          func(configuration *tagupdate.Configuration) { configuration.TargetValuesFile = "" },
			expectedField:   "target_values_file",
			expectedMessage: "either target_values_file or file_pattern must be set",
		},
		{
			name:            "both_file_selections",
			mutate:          func(configuration *tagupdate.Configuration) { configuration.FilePattern = "*/values.yaml" },
			expectedField:   "file_pattern",
			expectedMessage: "cannot set both target_values_file and file_pattern, choose one",
		},
		{
			name:          "repository_without_owner",
			mutate:        func(configuration *tagupdate.Configuration) { configuration.Repository = "charts" },
			expectedField: "repo",
		},
		{
			name:            "zero_retries",
			mutate:          func(configuration *tagupdate.Configuration) { configuration.MaxRetries = 0 },
			expectedField:   "max_retries",
			expectedMessage: "max_retries must be at least 1",
		},
		{
			name:          "negative_delay",
			mutate:        func(configuration *tagupdate.Configuration) { configuration.RetryDelay = -time.Second },
			expectedField: "retry_delay",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			configuration := validConfiguration()
			testCase.mutate(&configuration)

			validationError := configuration.Validate()
			if len(testCase.expectedField) == 0 {
				require.NoError(subTest, validationError)
				return
			}

			require.ErrorIs(subTest, validationError, tagupdate.ErrInvalidConfiguration)
			var configurationError tagupdate.ConfigurationError
			require.True(subTest, errors.As(validationError, &configurationError))
			require.Equal(subTest, testCase.expectedField, configurationError.Field)
			if len(testCase.expectedMessage) > 0 {
				require.Equal(subTest, testCase.expectedMessage, validationError.Error())
			}
		})
	}
}

func TestConfigurationValidateWrapsTagError(testInstance *testing.T) {
	configuration := validConfiguration()
	configuration.NewTag = "bad tag"
	require.ErrorIs(testInstance, configuration.Validate(), tagging.ErrInvalidTagFormat)
}

func TestConfigurationRejectsWhitespaceInTagParts(testInstance *testing.T) {
	testCases := []struct {
		name   string
		mutate func(configuration *tagupdate.Configuration)
	}{
		{name: "padded_base", mutate: func(configuration *tagupdate.Configuration) { configuration.NewTag = " 1.2.3" }},
		{name: "trailing_newline_base", mutate: func(configuration *tagupdate.Configuration) { configuration.NewTag = "1.2.3\n" }},
		{name: "padded_prefix", mutate: func(configuration *tagupdate.Configuration) { configuration.TagPrefix = "v " }},
		{name: "padded_suffix", mutate: func(configuration *tagupdate.Configuration) { configuration.TagSuffix = " -rc1" }},
		{name: "whitespace_only_base", mutate: func(configuration *tagupdate.Configuration) { configuration.NewTag = "   " }},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			configuration := validConfiguration()
			testCase.mutate(&configuration)

			validationError := configuration.Sanitize().Validate()
			require.ErrorIs(subtest, validationError, tagging.ErrInvalidTagFormat)

			var configurationError tagupdate.ConfigurationError
			require.ErrorAs(subtest, validationError, &configurationError)
			require.Equal(subtest, tagupdate.NewTagKey, configurationError.Field)
		})
	}
}

func TestConfigurationFinalTagAndSelection(testInstance *testing.T) {
	configuration := validConfiguration()
	configuration.TagPrefix = "v"
	configuration.TagSuffix = "-rc1"

	require.Equal(testInstance, "v1.2.3-rc1", configuration.FinalTag())
	require.Equal(testInstance, "values.yaml", configuration.FileSelection().Describe())
}

func TestConfigurationSanitize(testInstance *testing.T) {
	configuration := tagupdate.Configuration{
		TargetPath:    "  charts ",
		NewTag:        " 1.2.3\n",
		TagPrefix:     "v ",
		TagSuffix:     " -rc1",
		FilePattern:   " env/*/values.yaml ",
		CommitMessage: "   ",
		RemoteName:    "",
		GitHost:       " ",
	}

	sanitized := configuration.Sanitize()
	require.Equal(testInstance, "charts", sanitized.TargetPath)
	require.Equal(testInstance, " 1.2.3\n", sanitized.NewTag)
	require.Equal(testInstance, "v ", sanitized.TagPrefix)
	require.Equal(testInstance, " -rc1", sanitized.TagSuffix)
	require.Equal(testInstance, "env/*/values.yaml", sanitized.FilePattern)
	require.Equal(testInstance, "Update image tag", sanitized.CommitMessage)
	require.Equal(testInstance, "origin", sanitized.RemoteName)
	require.Equal(testInstance, "github.com", sanitized.GitHost)
}

func TestDefaultConfigurationValuesCoverEveryKey(testInstance *testing.T) {
	defaults := tagupdate.DefaultConfigurationValues()
	for _, key := range []string{
		tagupdate.TargetPathKey, tagupdate.NewTagKey, tagupdate.TagStringKey, tagupdate.GitUserNameKey,
		tagupdate.GitUserEmailKey, tagupdate.GitHubTokenKey, tagupdate.RepositoryKey, tagupdate.BranchKey,
		tagupdate.TargetValuesFileKey, tagupdate.FilePatternKey, tagupdate.SummaryFileKey, tagupdate.GitHubOutputKey,
	} {
		require.Contains(testInstance, defaults, key)
	}
	require.Equal(testInstance, "Update image tag", defaults[tagupdate.CommitMessageKey])
	require.Equal(testInstance, 3, defaults[tagupdate.MaxRetriesKey])
	require.Equal(testInstance, "5s", defaults[tagupdate.RetryDelayKey])
}
