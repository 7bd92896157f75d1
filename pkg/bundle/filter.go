package bundle

import (
	"path"
	"sort"
	"strings"

	"github.com/eamonnfaherty/codebundle/pkg/ignore"
)

// Reason explains why a file was left out of a bundle.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonExtensionDisallowed
	ReasonPatternMatched
)

func (r Reason) String() string {
	switch r {
	case ReasonExtensionDisallowed:
		return "extension-disallowed"
	case ReasonPatternMatched:
		return "pattern-matched"
	default:
		return "none"
	}
}

// Decision is the eligibility verdict for one path.
type Decision struct {
	Include bool
	Reason  Reason
	Pattern *ignore.IgnorePattern // Set when Reason is ReasonPatternMatched.
}

// wellKnownFiles are eligible regardless of the extension allow-list.
var wellKnownFiles = map[string]bool{
	"Dockerfile":  true,
	"Makefile":    true,
	"Gemfile":     true,
	"Rakefile":    true,
	"Jenkinsfile": true,
	"Procfile":    true,
	"Vagrantfile": true,
}

// defaultExtensions is the source-code allow-list used when none is
// configured.
var defaultExtensions = []string{
	"abap", "ada", "adb", "ads", "apl", "asm", "awk", "bash", "bat", "c", "cbl", "cc",
	"cfg", "cjs", "clj", "cljc", "cljs", "cls", "cmake", "cob", "coffee", "conf", "config",
	"cpp", "cs", "css", "csv", "cxx", "d", "dart", "el", "elm", "erl", "ex", "exs",
	"f", "f90", "fs", "fsx", "go", "gradle", "graphql", "groovy", "h", "hcl", "hh",
	"hpp", "hrl", "hs", "html", "ini", "java", "jl", "js", "json", "jsx", "kt", "kts",
	"less", "lisp", "lua", "m", "md", "mdx", "mjs", "ml", "mli", "mm", "nim", "nix",
	"php", "pl", "pm", "properties", "ps1", "psm1", "py", "r", "rb", "rs", "rst",
	"sass", "scala", "scm", "scss", "sh", "sql", "svelte", "swift", "tcl", "tf",
	"toml", "ts", "tsx", "txt", "vb", "vue", "xml", "yaml", "yml", "zsh",
}

// DefaultExtensions returns the built-in source-code extension allow-list.
func DefaultExtensions() []string {
	out := make([]string, len(defaultExtensions))
	copy(out, defaultExtensions)
	return out
}

// IsWellKnown reports whether name is eligible without an allow-listed
// extension. Dockerfile variants such as Dockerfile.dev count.
func IsWellKnown(name string) bool {
	return wellKnownFiles[name] || strings.HasPrefix(name, "Dockerfile.")
}

// ExtensionSet is a normalized set of file extensions.
type ExtensionSet map[string]struct{}

// NewExtensionSet accepts "py", ".py" and "*.py" forms; matching is
// case-insensitive.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = normalizeExtension(ext)
		if ext == "" {
			continue
		}
		set[ext] = struct{}{}
	}
	return set
}

// Contains reports whether ext is in the set.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s[normalizeExtension(ext)]
	return ok
}

// Sorted returns the extensions in lexical order.
func (s ExtensionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimPrefix(ext, "*.")
	ext = strings.TrimLeft(ext, ".")
	return strings.ToLower(ext)
}

// Extension returns the lower-cased extension of a file name without the
// leading dot, or "" when there is none.
func Extension(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// Filter decides which files are eligible for a bundle. It holds no mutable
// state and is safe for concurrent use.
type Filter struct {
	allow    ExtensionSet
	patterns *ignore.PatternSet
}

// NewFilter builds a Filter from an extension allow-list and compiled
// ignore patterns.
func NewFilter(allow ExtensionSet, patterns *ignore.PatternSet) *Filter {
	return &Filter{allow: allow, patterns: patterns}
}

// Allowed returns the extension allow-list.
func (f *Filter) Allowed() ExtensionSet { return f.allow }

// Patterns returns the compiled ignore patterns.
func (f *Filter) Patterns() *ignore.PatternSet { return f.patterns }

// ExtensionAllowed is the cheap check: well-known names and allow-listed
// extensions pass.
func (f *Filter) ExtensionAllowed(name string) bool {
	if IsWellKnown(name) {
		return true
	}
	return f.allow.Contains(Extension(name))
}

// Decide returns the verdict for relPath, a slash-separated path relative
// to the bundling root. Directories are always included so traversal can
// descend into them. Patterns are only consulted for files that pass the
// extension check.
func (f *Filter) Decide(relPath string, isDir bool) Decision {
	if isDir {
		return Decision{Include: true}
	}
	if !f.ExtensionAllowed(path.Base(relPath)) {
		return Decision{Reason: ReasonExtensionDisallowed}
	}
	if matched, p := f.patterns.Match(relPath); matched {
		return Decision{Reason: ReasonPatternMatched, Pattern: p}
	}
	return Decision{Include: true}
}
