package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tagpush/internal/utils"
)

const (
	testConfigurationNameConstant                  = "tagpush"
	testConfigurationTypeConstant                  = "yaml"
	testConfigFileNameConstant                     = "tagpush.yaml"
	testBranchKeyConstant                          = "branch"
	testRetryDelayKeyConstant                      = "retry_delay"
	testDefaultBranchConstant                      = "main"
	testEmbeddedBranchConstant                     = "embedded"
	testFileBranchConstant                         = "release"
	testEnvironmentBranchConstant                  = "deploy"
	testConfigContentTemplateConstant              = "branch: %s\nretry_delay: 2s\n"
	testCaseEmbeddedMessageConstant                = "embedded configuration merges"
	testCaseDefaultsMessageConstant                = "defaults are applied"
	testCaseFileMessageConstant                    = "config file overrides embedded"
	testCaseEnvironmentMessageConstant             = "environment overrides file"
	configurationLoaderSubtestNameTemplateConstant = "%d_%s"
)

type configurationFixture struct {
	Branch     string        `mapstructure:"branch"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

func TestConfigurationLoaderLoadConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                string
		embeddedBranch      string
		fileBranch          string
		environmentBranch   string
		expectedBranch      string
		expectedRetryDelay  time.Duration
		environmentOverride bool
	}{
		{
			name:               testCaseEmbeddedMessageConstant,
			embeddedBranch:     testEmbeddedBranchConstant,
			expectedBranch:     testEmbeddedBranchConstant,
			expectedRetryDelay: 2 * time.Second,
		},
		{
			name:               testCaseDefaultsMessageConstant,
			expectedBranch:     testDefaultBranchConstant,
			expectedRetryDelay: 5 * time.Second,
		},
		{
			name:               testCaseFileMessageConstant,
			embeddedBranch:     testEmbeddedBranchConstant,
			fileBranch:         testFileBranchConstant,
			expectedBranch:     testFileBranchConstant,
			expectedRetryDelay: 2 * time.Second,
		},
		{
			name:               testCaseEnvironmentMessageConstant,
			embeddedBranch:     testEmbeddedBranchConstant,
			fileBranch:         testFileBranchConstant,
			environmentBranch:  testEnvironmentBranchConstant,
			expectedBranch:     testEnvironmentBranchConstant,
			expectedRetryDelay: 2 * time.Second,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			tempDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if len(testCase.fileBranch) > 0 {
				configurationFilePath = filepath.Join(tempDirectory, testConfigFileNameConstant)
				configurationContent := fmt.Sprintf(testConfigContentTemplateConstant, testCase.fileBranch)
				writeError := os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600)
				require.NoError(testInstance, writeError)
			}

			testInstance.Setenv("BRANCH", testCase.environmentBranch)

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, "", []string{tempDirectory})
			if len(testCase.embeddedBranch) > 0 {
				configurationLoader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testConfigContentTemplateConstant, testCase.embeddedBranch)), testConfigurationTypeConstant)
			}

			defaultValues := map[string]any{
				testBranchKeyConstant:     testDefaultBranchConstant,
				testRetryDelayKeyConstant: "5s",
			}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedBranch, loadedConfiguration.Branch)
			require.Equal(testInstance, testCase.expectedRetryDelay, loadedConfiguration.RetryDelay)

			if len(configurationFilePath) > 0 {
				require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			} else {
				require.Empty(testInstance, metadata.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderHonorsEnvironmentPrefix(testInstance *testing.T) {
	testInstance.Setenv("TAGPUSH_BRANCH", testEnvironmentBranchConstant)

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, "TAGPUSH", []string{testInstance.TempDir()})
	loadedConfiguration := configurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration("", map[string]any{testBranchKeyConstant: testDefaultBranchConstant}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testEnvironmentBranchConstant, loadedConfiguration.Branch)
}

func TestConfigurationLoaderRejectsMissingExplicitFile(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, "", nil)
	loadedConfiguration := configurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration(filepath.Join(testInstance.TempDir(), "missing.yaml"), nil, &loadedConfiguration)
	require.ErrorContains(testInstance, loadError, "failed to read configuration")
}
