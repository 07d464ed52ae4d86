package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	keyDeclarationPatternTemplateConstant = `(?m)^[ \t]*%s:`
	keyValuePatternTemplateConstant       = `(?m)^[ \t]*%s:[ \t]*"?([^"\r\n]+)"?`
	keyLinePatternTemplateConstant        = `(?m)^([ \t]*%s:)[^\r\n]*`
	replacementTemplateConstant           = `${1} "%s"`
	surroundingQuoteCharactersConstant    = `"'`
	dollarSignConstant                    = "$"
	escapedDollarSignConstant             = "$$"
)

// SkipReason enumerates why a file is left untouched.
type SkipReason string

// Supported skip reasons.
const (
	SkipReasonNone            SkipReason = ""
	SkipReasonInclusionFilter SkipReason = "does not satisfy inclusion filter"
	SkipReasonExclusionFilter SkipReason = "matches exclusion filter"
	SkipReasonAlreadyCurrent  SkipReason = "already at target value"
)

// SkipDecision captures the outcome of the skip rules for one file.
type SkipDecision struct {
	Skip   bool
	Reason SkipReason
}

// ContainsKey reports whether any line declares the key.
func ContainsKey(contents string, keyName string) bool {
	return compileKeyPattern(keyDeclarationPatternTemplateConstant, keyName).MatchString(contents)
}

// ExtractCurrentValue returns the value of the first line declaring the key,
// trimmed of surrounding whitespace and quotes. The boolean is false when no
// line carries a value for the key. Only spaces and tabs may separate the colon
// from the value, so a bare "key:" line never picks up the following line.
func ExtractCurrentValue(contents string, keyName string) (string, bool) {
	match := compileKeyPattern(keyValuePatternTemplateConstant, keyName).FindStringSubmatch(contents)
	if match == nil {
		return "", false
	}
	value := strings.Trim(strings.TrimSpace(match[1]), surroundingQuoteCharactersConstant)
	return strings.TrimSpace(value), true
}

// EvaluateSkip applies, in order, the inclusion filter, the exclusion filter,
// and the already-current check. Empty filters are ignored.
func EvaluateSkip(currentValue string, finalTag string, includeSubstring string, excludeSubstring string) SkipDecision {
	if len(includeSubstring) > 0 && !strings.Contains(currentValue, includeSubstring) {
		return SkipDecision{Skip: true, Reason: SkipReasonInclusionFilter}
	}
	if len(excludeSubstring) > 0 && strings.Contains(currentValue, excludeSubstring) {
		return SkipDecision{Skip: true, Reason: SkipReasonExclusionFilter}
	}
	if currentValue == finalTag {
		return SkipDecision{Skip: true, Reason: SkipReasonAlreadyCurrent}
	}
	return SkipDecision{}
}

// ApplyUpdate rewrites every line declaring the key so that its value becomes
// the double-quoted final tag. Indentation and the key token are preserved;
// anything after the colon on those lines is discarded.
func ApplyUpdate(contents string, keyName string, finalTag string) string {
	replacement := fmt.Sprintf(replacementTemplateConstant, strings.ReplaceAll(finalTag, dollarSignConstant, escapedDollarSignConstant))
	return compileKeyPattern(keyLinePatternTemplateConstant, keyName).ReplaceAllString(contents, replacement)
}

func compileKeyPattern(template string, keyName string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(template, regexp.QuoteMeta(keyName)))
}
