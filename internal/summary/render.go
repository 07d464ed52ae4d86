package summary

import (
	"fmt"
	"io"
	"strings"
)

const (
	summaryHeaderConstant         = "Change Summary:"
	updatedCountTemplateConstant  = "  Updated %d file(s)\n"
	fileLineTemplateConstant      = "  • %s\n"
	transitionTemplateConstant    = "    %s → %s\n"
	commitLineTemplateConstant    = "\n  Commit: %s\n"
	unknownOldTagConstant         = "unknown"
	historyHeaderTemplateConstant = "%s %s@%s"
	historyDryRunSuffixConstant   = " (dry run)"
	historyNoChangesConstant      = "  No files changed\n"
	historyEmptyMessageConstant   = "No recorded runs\n"
)

// Render returns the human readable summary of a record, or an empty string when nothing changed.
func Render(record Record) string {
	if len(record.Changes) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(summaryHeaderConstant)
	builder.WriteByte('\n')
	writeChanges(&builder, record)
	return builder.String()
}

// RenderHistory writes the records, oldest first, to the writer.
func RenderHistory(writer io.Writer, records []Record) error {
	if len(records) == 0 {
		_, writeError := io.WriteString(writer, historyEmptyMessageConstant)
		return writeError
	}
	var builder strings.Builder
	for recordIndex, record := range records {
		if recordIndex > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(fmt.Sprintf(historyHeaderTemplateConstant, record.Timestamp, record.Repository, record.Branch))
		if record.DryRun {
			builder.WriteString(historyDryRunSuffixConstant)
		}
		builder.WriteByte('\n')
		if len(record.Changes) == 0 {
			builder.WriteString(historyNoChangesConstant)
			continue
		}
		writeChanges(&builder, record)
	}
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func writeChanges(builder *strings.Builder, record Record) {
	builder.WriteString(fmt.Sprintf(updatedCountTemplateConstant, len(record.Changes)))
	for _, change := range record.Changes {
		oldTag := change.OldTag
		if len(oldTag) == 0 {
			oldTag = unknownOldTagConstant
		}
		builder.WriteString(fmt.Sprintf(fileLineTemplateConstant, change.File))
		builder.WriteString(fmt.Sprintf(transitionTemplateConstant, oldTag, change.NewTag))
	}
	if len(record.CommitSHA) > 0 {
		builder.WriteString(fmt.Sprintf(commitLineTemplateConstant, record.CommitSHA))
	}
}
