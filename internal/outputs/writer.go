package outputs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/temirov/tagpush/internal/shared"
)

// Output keys published for each run.
const (
	ChangesCountKey   = "changes_count"
	ChangedFilesKey   = "changed_files"
	OldTagsKey        = "old_tags"
	FinalTagKey       = "final_tag"
	ChangesMadeKey    = "changes_made"
	CommitSHAKey      = "commit_sha"
	CommitSHAShortKey = "commit_sha_short"

	shortSHALengthConstant        = 7
	listSeparatorConstant         = ","
	simpleLineTemplateConstant    = "%s=%s\n"
	multilineTemplateConstant     = "%s<<%s\n%s\n%s\n"
	multilineDelimiterPrefix      = "TAGPUSH_EOF_"
	outputFilePermissionsConstant = 0o644
	writeOutputsErrorTemplate     = "unable to write CI outputs to %s: %w"
	missingFileSystemMessage      = "output writer filesystem not configured"
)

// ErrWriterNotConfigured indicates missing writer dependencies.
var ErrWriterNotConfigured = errors.New(missingFileSystemMessage)

// Result carries the values published as outputs.
type Result struct {
	ChangedFiles []string
	OldTags      []string
	FinalTag     string
	CommitSHA    string
}

// Writer appends outputs to the CI output file. An empty path disables it.
type Writer struct {
	fileSystem shared.FileSystem
	path       string
}

// NewWriter constructs a Writer for the output file path.
func NewWriter(fileSystem shared.FileSystem, path string) (*Writer, error) {
	if fileSystem == nil {
		return nil, ErrWriterNotConfigured
	}
	return &Writer{fileSystem: fileSystem, path: path}, nil
}

// Enabled reports whether an output file is configured.
func (writer *Writer) Enabled() bool {
	return len(writer.path) > 0
}

// Values converts a Result to output key/value pairs.
func Values(result Result) map[string]string {
	values := map[string]string{
		ChangesCountKey: strconv.Itoa(len(result.ChangedFiles)),
		ChangedFilesKey: strings.Join(result.ChangedFiles, listSeparatorConstant),
		OldTagsKey:      strings.Join(result.OldTags, listSeparatorConstant),
		FinalTagKey:     result.FinalTag,
		ChangesMadeKey:  strconv.FormatBool(len(result.ChangedFiles) > 0),
	}
	if len(result.CommitSHA) > 0 {
		values[CommitSHAKey] = result.CommitSHA
		shortSHA := result.CommitSHA
		if len(shortSHA) > shortSHALengthConstant {
			shortSHA = shortSHA[:shortSHALengthConstant]
		}
		values[CommitSHAShortKey] = shortSHA
	}
	return values
}

// Write appends the result to the output file in key order.
func (writer *Writer) Write(result Result) error {
	if !writer.Enabled() {
		return nil
	}
	values := Values(result)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		builder.WriteString(formatEntry(key, values[key]))
	}
	if appendError := writer.fileSystem.AppendFile(writer.path, []byte(builder.String()), outputFilePermissionsConstant); appendError != nil {
		return fmt.Errorf(writeOutputsErrorTemplate, writer.path, appendError)
	}
	return nil
}

func formatEntry(key string, value string) string {
	if !strings.ContainsAny(value, "\r\n") {
		return fmt.Sprintf(simpleLineTemplateConstant, key, value)
	}
	delimiter := multilineDelimiterPrefix + strings.ToUpper(key)
	return fmt.Sprintf(multilineTemplateConstant, key, delimiter, value, delimiter)
}
