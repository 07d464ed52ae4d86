package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/temirov/tagpush/internal/shared"
)

const (
	invalidPatternErrorTemplateConstant = "invalid file pattern %q: %w"
	globErrorTemplateConstant           = "unable to expand file pattern %q: %w"
	statErrorTemplateConstant           = "unable to inspect %s: %w"
)

// FileSelection describes which files to process. SingleFile takes precedence
// over Pattern when both are set.
type FileSelection struct {
	SingleFile string
	Pattern    string
}

// SelectedFile pairs the absolute path used for IO with the path as reported to users.
type SelectedFile struct {
	Path        string
	DisplayPath string
}

// Describe returns the file or pattern used for messages and commit text.
func (selection FileSelection) Describe() string {
	if len(selection.SingleFile) > 0 {
		return selection.SingleFile
	}
	return selection.Pattern
}

// SelectFiles resolves the selection against the base directory. A missing
// single file yields FileNotFoundError; a pattern with no matches yields an
// empty list together with NoFilesMatchedError.
func SelectFiles(fileSystem shared.FileSystem, baseDirectory string, selection FileSelection) ([]SelectedFile, error) {
	if len(selection.SingleFile) > 0 {
		absolutePath := joinWithBase(baseDirectory, selection.SingleFile)
		fileInfo, statError := fileSystem.Stat(absolutePath)
		if statError != nil {
			if errors.Is(statError, fs.ErrNotExist) {
				return nil, FileNotFoundError{Path: selection.SingleFile}
			}
			return nil, fmt.Errorf(statErrorTemplateConstant, selection.SingleFile, statError)
		}
		if !fileInfo.Mode().IsRegular() {
			return nil, FileNotFoundError{Path: selection.SingleFile}
		}
		return []SelectedFile{{Path: absolutePath, DisplayPath: selection.SingleFile}}, nil
	}

	if !doublestar.ValidatePattern(filepath.ToSlash(selection.Pattern)) {
		return nil, fmt.Errorf(invalidPatternErrorTemplateConstant, selection.Pattern, doublestar.ErrBadPattern)
	}

	var selectedFiles []SelectedFile
	if filepath.IsAbs(selection.Pattern) {
		matches, globError := doublestar.FilepathGlob(selection.Pattern, doublestar.WithFilesOnly())
		if globError != nil {
			return nil, fmt.Errorf(globErrorTemplateConstant, selection.Pattern, globError)
		}
		for _, match := range matches {
			selectedFiles = append(selectedFiles, SelectedFile{Path: match, DisplayPath: match})
		}
	} else {
		matches, globError := doublestar.Glob(os.DirFS(baseDirectory), filepath.ToSlash(selection.Pattern), doublestar.WithFilesOnly())
		if globError != nil {
			return nil, fmt.Errorf(globErrorTemplateConstant, selection.Pattern, globError)
		}
		for _, match := range matches {
			displayPath := filepath.FromSlash(match)
			selectedFiles = append(selectedFiles, SelectedFile{Path: filepath.Join(baseDirectory, displayPath), DisplayPath: displayPath})
		}
	}

	sort.Slice(selectedFiles, func(leftIndex int, rightIndex int) bool {
		return selectedFiles[leftIndex].DisplayPath < selectedFiles[rightIndex].DisplayPath
	})

	if len(selectedFiles) == 0 {
		return []SelectedFile{}, NoFilesMatchedError{Pattern: selection.Pattern}
	}
	return selectedFiles, nil
}

func joinWithBase(baseDirectory string, path string) string {
	if filepath.IsAbs(path) || len(baseDirectory) == 0 {
		return path
	}
	return filepath.Join(baseDirectory, path)
}
