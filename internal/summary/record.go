package summary

import (
	"time"
)

const timestampLayoutConstant = "2006-01-02T15:04:05.000000Z"

// Change captures one file's tag transition.
type Change struct {
	File      string `json:"file"`
	OldTag    string `json:"old_tag"`
	NewTag    string `json:"new_tag"`
	TagString string `json:"tag_string"`
}

// Record is the persisted summary of a single run.
type Record struct {
	RunIdentifier string   `json:"run_id,omitempty"`
	Timestamp     string   `json:"timestamp"`
	Repository    string   `json:"repository"`
	Branch        string   `json:"branch"`
	CommitSHA     string   `json:"commit_sha"`
	TargetPath    string   `json:"target_path"`
	ChangesCount  int      `json:"changes_count"`
	Changes       []Change `json:"changes"`
	DryRun        bool     `json:"dry_run"`
}

// RecordInput carries everything needed to build a Record.
type RecordInput struct {
	RunIdentifier string
	Time          time.Time
	Repository    string
	Branch        string
	CommitSHA     string
	TargetPath    string
	KeyName       string
	FinalTag      string
	DryRun        bool
	UpdatedFiles  []string
	OldTags       map[string]string
}

// BuildRecord assembles a Record. Files without a known previous value get an empty old tag.
func BuildRecord(input RecordInput) Record {
	changes := make([]Change, 0, len(input.UpdatedFiles))
	for _, file := range input.UpdatedFiles {
		changes = append(changes, Change{
			File:      file,
			OldTag:    input.OldTags[file],
			NewTag:    input.FinalTag,
			TagString: input.KeyName,
		})
	}
	return Record{
		RunIdentifier: input.RunIdentifier,
		Timestamp:     input.Time.UTC().Format(timestampLayoutConstant),
		Repository:    input.Repository,
		Branch:        input.Branch,
		CommitSHA:     input.CommitSHA,
		TargetPath:    input.TargetPath,
		ChangesCount:  len(changes),
		Changes:       changes,
		DryRun:        input.DryRun,
	}
}
