package ignore

import (
	"strings"
)

// Bounds applied to every translated ignore line so that a pattern only
// matches whole path segments.
const (
	segmentStart = `(^|/)`
	segmentEnd   = `(/|$)`
)

// staticRules are matched against the slash-separated path relative to the
// bundling root.
var staticRules = []string{
	// Version control and tool metadata.
	`(^|/)\.git(/|$)`,
	`(^|/)\.gitignore$`,
	`(^|/)\.svn(/|$)`,
	`(^|/)\.hg(/|$)`,
	`(^|/)\.aws-sam(/|$)`,
	`(^|/)\.rvm(/|$)`,
	`(^|/)\.gem(/|$)`,
	// IDE metadata.
	`(^|/)\.idea(/|$)`,
	`(^|/)\.vscode(/|$)`,
	`(^|/)\.project$`,
	// Binary, image and archive files.
	`\.zip$`,
	`\.bin$`,
	`\.png$`,
	`\.jpg$`,
	`\.svg$`,
	`\.pyc$`,
	// License files.
	`(?i)(^|/)license\.(txt|md)$`,
	// Dependency and build output.
	`(^|/)node_modules(/|$)`,
	`(^|/)build(/|$)`,
	`(^|/)dist(/|$)`,
}

// StaticRules returns the built-in ignore rules as regular expressions.
func StaticRules() []string {
	out := make([]string, len(staticRules))
	copy(out, staticRules)
	return out
}

// TranslateGlob converts one ignore file line into a regular expression.
// It returns false for blank lines and comments.
func TranslateGlob(line string) (string, bool) {
	trimmedLine := strings.TrimSpace(line)

	// Ignore empty lines and comments.
	if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
		return "", false
	}

	expr := escapeDots(trimmedLine)
	expr = wildcardToRegex(expr)
	expr = optionalTrailingSlash(expr)
	return segmentStart + expr + segmentEnd, true
}

// escapeDots escapes literal dots. Other regex metacharacters pass through.
func escapeDots(pattern string) string {
	return strings.ReplaceAll(pattern, ".", `\.`)
}

// wildcardToRegex converts `*` to a match of any sequence.
func wildcardToRegex(pattern string) string {
	return strings.ReplaceAll(pattern, "*", `.*`)
}

// optionalTrailingSlash lets a directory pattern match the bare name too.
func optionalTrailingSlash(pattern string) string {
	if strings.HasSuffix(pattern, "/") {
		return pattern + "?"
	}
	return pattern
}
