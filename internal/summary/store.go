package summary

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/temirov/tagpush/internal/shared"
)

const (
	// DefaultCapacity bounds the number of records kept in the log.
	DefaultCapacity = 100

	temporaryFilePatternConstant     = ".tagpush-summary-*"
	directoryPermissionsConstant     = 0o755
	logFilePermissionsConstant       = 0o644
	jsonIndentConstant               = "  "
	arrayOpeningConstant             = '['
	newlineConstant                  = '\n'
	readLogErrorTemplateConstant     = "unable to read change log %s: %w"
	decodeLogErrorTemplateConstant   = "unable to decode change log %s: %w"
	writeLogErrorTemplateConstant    = "unable to write change log %s: %w"
	encodeRecordErrorTemplate        = "unable to encode change log: %w"
	discardingLogMessageConstant     = "Could not read existing change log, starting fresh"
	persistedLogMessageConstant      = "Saved change summary"
	persistedContentLogMessage       = "Change summary content"
	pathLogFieldConstant             = "path"
	recordsLogFieldConstant          = "records"
	recordLogFieldConstant           = "record"
	missingPathMessageConstant       = "change log path not configured"
	missingFileSystemMessageConstant = "change log filesystem not configured"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrStoreNotConfigured indicates missing store settings.
var ErrStoreNotConfigured = errors.New("change log store not configured")

// Store appends records to a bounded JSON log file.
type Store struct {
	fileSystem shared.FileSystem
	logger     *zap.Logger
	path       string
	capacity   int
}

// NewStore constructs a Store writing to path.
func NewStore(fileSystem shared.FileSystem, logger *zap.Logger, path string) (*Store, error) {
	if fileSystem == nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotConfigured, missingFileSystemMessageConstant)
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotConfigured, missingPathMessageConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{fileSystem: fileSystem, logger: logger, path: path, capacity: DefaultCapacity}, nil
}

// Path returns the log file location.
func (store *Store) Path() string {
	return store.path
}

// Persist appends the record, trims the log to capacity, and rewrites it atomically.
func (store *Store) Persist(record Record) error {
	records, loadError := store.Load()
	if loadError != nil {
		store.logger.Warn(discardingLogMessageConstant, zap.String(pathLogFieldConstant, store.path), zap.Error(loadError))
		records = nil
	}

	records = append(records, record)
	if len(records) > store.capacity {
		records = records[len(records)-store.capacity:]
	}

	contents, marshalError := jsonCodec.MarshalIndent(records, "", jsonIndentConstant)
	if marshalError != nil {
		return fmt.Errorf(encodeRecordErrorTemplate, marshalError)
	}
	if writeError := store.writeAtomically(contents); writeError != nil {
		return fmt.Errorf(writeLogErrorTemplateConstant, store.path, writeError)
	}

	store.logger.Info(persistedLogMessageConstant, zap.String(pathLogFieldConstant, store.path), zap.Int(recordsLogFieldConstant, len(records)))
	store.logger.Debug(persistedContentLogMessage, zap.Any(recordLogFieldConstant, record))
	return nil
}

// Load returns every record in the log, oldest first. A missing or empty log
// yields no records and a log holding a single object yields that one record.
func (store *Store) Load() ([]Record, error) {
	contents, readError := store.fileSystem.ReadFile(store.path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(readLogErrorTemplateConstant, store.path, readError)
	}
	trimmed := bytes.TrimSpace(contents)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] != arrayOpeningConstant {
		var record Record
		if decodeError := jsonCodec.Unmarshal(trimmed, &record); decodeError != nil {
			return nil, fmt.Errorf(decodeLogErrorTemplateConstant, store.path, decodeError)
		}
		return []Record{record}, nil
	}

	var records []Record
	if decodeError := jsonCodec.Unmarshal(trimmed, &records); decodeError != nil {
		return nil, fmt.Errorf(decodeLogErrorTemplateConstant, store.path, decodeError)
	}
	return records, nil
}

func (store *Store) writeAtomically(contents []byte) error {
	directory := filepath.Dir(store.path)
	if mkdirError := store.fileSystem.MkdirAll(directory, directoryPermissionsConstant); mkdirError != nil {
		return mkdirError
	}
	temporaryFile, createError := store.fileSystem.CreateTemp(directory, temporaryFilePatternConstant)
	if createError != nil {
		return createError
	}
	temporaryPath := temporaryFile.Name()

	writeError := temporaryFile.Chmod(logFilePermissionsConstant)
	if writeError == nil {
		_, writeError = temporaryFile.Write(append(contents, newlineConstant))
	}
	if closeError := temporaryFile.Close(); writeError == nil {
		writeError = closeError
	}
	if writeError != nil {
		_ = store.fileSystem.Remove(temporaryPath)
		return writeError
	}

	if renameError := store.fileSystem.Rename(temporaryPath, store.path); renameError != nil {
		_ = store.fileSystem.Remove(temporaryPath)
		return renameError
	}
	return nil
}
