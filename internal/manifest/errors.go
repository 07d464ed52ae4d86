package manifest

import (
	"errors"
	"fmt"
)

const (
	fileNotFoundMessageTemplateConstant   = "target file not found: %s"
	noFilesMatchedMessageTemplateConstant = "no files match pattern: %s"
)

// ErrFileNotFound indicates that a configured target file does not exist.
var ErrFileNotFound = errors.New("target file not found")

// ErrNoFilesMatched indicates that a glob pattern selected nothing.
var ErrNoFilesMatched = errors.New("no files matched")

// FileNotFoundError reports the missing file path.
type FileNotFoundError struct {
	Path string
}

// Error describes the missing file.
func (errorValue FileNotFoundError) Error() string {
	return fmt.Sprintf(fileNotFoundMessageTemplateConstant, errorValue.Path)
}

// Is matches ErrFileNotFound.
func (errorValue FileNotFoundError) Is(target error) bool {
	return target == ErrFileNotFound
}

// NoFilesMatchedError reports a pattern that matched no files.
type NoFilesMatchedError struct {
	Pattern string
}

// Error describes the empty match.
func (errorValue NoFilesMatchedError) Error() string {
	return fmt.Sprintf(noFilesMatchedMessageTemplateConstant, errorValue.Pattern)
}

// Is matches ErrNoFilesMatched.
func (errorValue NoFilesMatchedError) Is(target error) bool {
	return target == ErrNoFilesMatched
}
