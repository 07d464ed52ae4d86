// Package manifest locates target files and rewrites the tag value inside them.
//
// Matching is line oriented: every line of the form `<key>: value`, at any
// indentation, is treated as a tag declaration. ExtractCurrentValue reads the
// first such line, EvaluateSkip applies the inclusion, exclusion, and
// already-current rules in that order, and ApplyUpdate rewrites every
// matching line to `<key>: "<final tag>"`. Updater combines these steps with
// preview and backup handling for one file at a time, and SelectFiles turns
// the configured file or glob pattern into the list of files to process.
package manifest
