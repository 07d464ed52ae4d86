// Package tagging composes the final image tag and validates its format.
package tagging

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	invalidTagFormatMessageConstant       = "invalid tag format"
	invalidTagFormatErrorTemplateConstant = "%s: %s. Tags should only contain alphanumeric characters, dots, underscores, and hyphens, and must start with an alphanumeric character"
	tagPatternExpressionConstant          = `^[A-Za-z0-9][A-Za-z0-9._-]*$`
)

// ErrInvalidTagFormat indicates a composed tag does not satisfy the naming pattern.
var ErrInvalidTagFormat = errors.New(invalidTagFormatMessageConstant)

var tagPattern = regexp.MustCompile(tagPatternExpressionConstant)

// InvalidTagFormatError reports the offending tag.
type InvalidTagFormatError struct {
	Tag string
}

// Error describes the rejected tag.
func (formatError InvalidTagFormatError) Error() string {
	return fmt.Sprintf(invalidTagFormatErrorTemplateConstant, invalidTagFormatMessageConstant, formatError.Tag)
}

// Is reports whether the target is ErrInvalidTagFormat.
func (formatError InvalidTagFormatError) Is(target error) bool {
	return target == ErrInvalidTagFormat
}

// ResolveFinalTag concatenates prefix, base, and suffix without any normalization.
func ResolveFinalTag(baseTag string, prefix string, suffix string) string {
	return prefix + baseTag + suffix
}

// ValidateTag rejects tags that do not start with an alphanumeric character or
// contain characters other than alphanumerics, dots, underscores, and hyphens.
func ValidateTag(finalTag string) error {
	if !tagPattern.MatchString(finalTag) {
		return InvalidTagFormatError{Tag: finalTag}
	}
	return nil
}
