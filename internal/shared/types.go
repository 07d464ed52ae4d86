package shared

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/temirov/tagpush/internal/execshell"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleeper blocks for a duration or until the context ends.
type Sleeper interface {
	Sleep(executionContext context.Context, duration time.Duration) error
}

// TimerSleeper implements Sleeper with a real timer.
type TimerSleeper struct{}

// Sleep waits for the duration and returns the context error if it ends first.
func (TimerSleeper) Sleep(executionContext context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// FileSystem exposes the filesystem operations required by the file updater and change recorder.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	Rename(oldPath string, newPath string) error
	Remove(path string) error
	MkdirAll(path string, permissions fs.FileMode) error
	CreateTemp(directory string, pattern string) (*os.File, error)
	Chtimes(path string, accessTime time.Time, modificationTime time.Time) error
	Chmod(path string, permissions fs.FileMode) error
	AppendFile(path string, data []byte, permissions fs.FileMode) error
	ReadDir(path string) ([]fs.DirEntry, error)
}

// OSFileSystem implements FileSystem using the operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file with the supplied permissions.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// Rename renames a path.
func (OSFileSystem) Rename(oldPath string, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// Remove deletes a path.
func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// CreateTemp creates a temporary file in the directory.
func (OSFileSystem) CreateTemp(directory string, pattern string) (*os.File, error) {
	return os.CreateTemp(directory, pattern)
}

// Chtimes updates access and modification times.
func (OSFileSystem) Chtimes(path string, accessTime time.Time, modificationTime time.Time) error {
	return os.Chtimes(path, accessTime, modificationTime)
}

// Chmod sets the permission bits of a path.
func (OSFileSystem) Chmod(path string, permissions fs.FileMode) error {
	return os.Chmod(path, permissions)
}

// AppendFile appends data to a file, creating it when absent.
func (OSFileSystem) AppendFile(path string, data []byte, permissions fs.FileMode) error {
	file, openError := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permissions)
	if openError != nil {
		return openError
	}
	_, writeError := file.Write(data)
	closeError := file.Close()
	if writeError != nil {
		return writeError
	}
	return closeError
}

// ReadDir lists directory entries sorted by name.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// Reporter prints human-oriented progress lines.
type Reporter interface {
	Printf(format string, arguments ...any)
}

type writerReporter struct {
	writer io.Writer
}

// NewWriterReporter constructs a Reporter that writes to the provided io.Writer.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = io.Discard
	}
	return writerReporter{writer: writer}
}

func (reporter writerReporter) Printf(format string, arguments ...any) {
	fmt.Fprintf(reporter.writer, format, arguments...)
}
