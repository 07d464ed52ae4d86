package execshell

import "regexp"

const redactedCredentialReplacementConstant = "${1}***@"

var credentialURLPattern = regexp.MustCompile(`(://[^/@:\s]+:)[^@/\s]+@`)

// RedactCredentials masks the password segment of any URL embedded in the value.
func RedactCredentials(value string) string {
	return credentialURLPattern.ReplaceAllString(value, redactedCredentialReplacementConstant)
}

// RedactArguments returns a copy of the arguments with embedded credentials masked.
func RedactArguments(arguments []string) []string {
	redacted := make([]string, len(arguments))
	for index, argument := range arguments {
		redacted[index] = RedactCredentials(argument)
	}
	return redacted
}
