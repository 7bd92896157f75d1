// Package ignore compiles the static ignore rules and the lines of a
// project's .gitignore into one immutable set of path matchers.
//
// The .gitignore translation is deliberately small: a literal '.' is
// escaped, '*' matches any sequence (including '/'), and a trailing '/'
// becomes optional so a directory pattern also matches the bare name.
// Negation ("!pattern"), anchoring ("/prefix"), character classes and
// nested ignore files are not interpreted.
package ignore

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Origin tells where a pattern came from.
type Origin int

const (
	OriginStatic Origin = iota
	OriginIgnoreFile
)

func (o Origin) String() string {
	if o == OriginIgnoreFile {
		return "ignore-file"
	}
	return "static"
}

// IgnorePattern encapsulates a compiled regular expression and metadata
// about the pattern's origin.
type IgnorePattern struct {
	Pattern *regexp.Regexp // Compiled regular expression for the pattern.
	Origin  Origin         // Static rule or ignore file line.
	Line    string         // Original rule or ignore file line.
	LineNo  int            // Line number in the source (1-based).
}

// PatternSet is an ordered, immutable collection of ignore patterns.
// It is built once per bundling session and is safe for concurrent use.
type PatternSet struct {
	patterns []*IgnorePattern
}

// Compile builds a PatternSet from static regular expressions and raw
// ignore file lines. Entries that fail to compile are dropped.
func Compile(static []string, ignoreLines []string, logger *zap.Logger) *PatternSet {
	if logger == nil {
		logger = zap.NewNop()
	}

	set := &PatternSet{patterns: make([]*IgnorePattern, 0, len(static)+len(ignoreLines))}
	for i, expr := range static {
		re, err := regexp.Compile(expr)
		if err != nil {
			logger.Debug("Dropping invalid static rule", zap.String("rule", expr), zap.Error(err))
			continue
		}
		set.patterns = append(set.patterns, &IgnorePattern{
			Pattern: re,
			Origin:  OriginStatic,
			Line:    expr,
			LineNo:  i + 1,
		})
	}

	for i, line := range ignoreLines {
		expr, ok := TranslateGlob(line)
		if !ok {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			logger.Debug("Dropping ignore pattern that does not compile",
				zap.String("line", line),
				zap.Int("lineNo", i+1),
				zap.Error(err))
			continue
		}
		set.patterns = append(set.patterns, &IgnorePattern{
			Pattern: re,
			Origin:  OriginIgnoreFile,
			Line:    strings.TrimSpace(line),
			LineNo:  i + 1,
		})
	}
	return set
}

// Load reads the ignore file at path, when it exists, and compiles it
// together with the static rules. It never fails: an unreadable or
// non-text ignore file leaves only the static rules in the set.
func Load(static []string, path string, logger *zap.Logger) *PatternSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return Compile(static, nil, logger)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Ignore file does not exist and will be skipped", zap.String("filePath", path))
		} else {
			logger.Warn("Failed to read ignore file, using static rules only", zap.String("filePath", path), zap.Error(err))
		}
		return Compile(static, nil, logger)
	}

	if !utf8.Valid(content) || bytes.IndexByte(content, 0) >= 0 {
		logger.Warn("Ignore file is not text, using static rules only", zap.String("filePath", path))
		return Compile(static, nil, logger)
	}

	lines := strings.Split(string(content), "\n")
	set := Compile(static, lines, logger)
	logger.Debug("Compiled ignore patterns",
		zap.String("filePath", path),
		zap.Int("lineCount", len(lines)),
		zap.Int("patternCount", set.Len()))
	return set
}

// Len returns the number of compiled patterns.
func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Patterns returns a copy of the compiled patterns in order.
func (s *PatternSet) Patterns() []*IgnorePattern {
	if s == nil {
		return nil
	}
	out := make([]*IgnorePattern, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// MatchesPath checks if a path matches any of the ignore patterns.
func (s *PatternSet) MatchesPath(path string) bool {
	matches, _ := s.Match(path)
	return matches
}

// Match reports whether any pattern matches path and returns the first one
// that does. The path is matched in slash form.
func (s *PatternSet) Match(path string) (bool, *IgnorePattern) {
	if s == nil {
		return false, nil
	}
	normalizedPath := filepath.ToSlash(path)
	for _, p := range s.patterns {
		if p.Pattern.MatchString(normalizedPath) {
			return true, p
		}
	}
	return false, nil
}
