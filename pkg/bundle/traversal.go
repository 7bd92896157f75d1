package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ExtensionTally counts files skipped because their extension is not
// allow-listed. It is safe for concurrent use.
type ExtensionTally struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewExtensionTally returns an empty tally.
func NewExtensionTally() *ExtensionTally {
	return &ExtensionTally{counts: make(map[string]int)}
}

// Add records one skipped file with the given extension.
func (t *ExtensionTally) Add(ext string) {
	t.mu.Lock()
	t.counts[ext]++
	t.mu.Unlock()
}

// Snapshot returns a copy of the counts.
func (t *ExtensionTally) Snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for ext, n := range t.counts {
		out[ext] = n
	}
	return out
}

// Total returns the number of skipped files across all extensions.
func (t *ExtensionTally) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.counts {
		total += n
	}
	return total
}

// Traversal is the outcome of a successful walk.
type Traversal struct {
	Files      []FileRecord
	Tally      *ExtensionTally
	TotalBytes int64
}

// Walk returns a lazy sequence of the plain files under root in lexical
// order. Directories are descended but never yielded; symlinks and other
// special files are skipped. Entries that vanish or cannot be inspected
// are logged and skipped. The only error yielded is a failure to open
// root itself. Stopping the iteration stops the walk.
func Walk(root string, logger *zap.Logger) iter.Seq2[Candidate, error] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(yield func(Candidate, error) bool) {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == root {
					return err
				}
				logger.Warn("Error accessing path during traversal", zap.String("path", p), zap.Error(err))
				return nil // Skip paths that cause errors
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					logger.Debug("File vanished during traversal", zap.String("filePath", p))
				} else {
					logger.Warn("Failed to get file info during traversal", zap.String("filePath", p), zap.Error(err))
				}
				return nil
			}

			relPath, err := filepath.Rel(root, p)
			if err != nil {
				logger.Warn("Unable to determine relative path", zap.String("filePath", p), zap.Error(err))
				return nil
			}

			slashPath := filepath.ToSlash(relPath)
			if !yield(Candidate{AbsPath: p, RelPath: slashPath, MatchPath: slashPath, Size: info.Size()}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(Candidate{}, fmt.Errorf("walk %s: %w", root, err))
		}
	}
}

// TraverseOption configures Traverse.
type TraverseOption func(*traverseConfig)

type traverseConfig struct {
	matchRoot string
}

// WithMatchRoot makes ignore patterns see paths relative to dir instead of
// the walked root. dir is the project root when a narrower subfolder is
// being bundled, so that project-level rules keep matching.
func WithMatchRoot(dir string) TraverseOption {
	return func(c *traverseConfig) {
		c.matchRoot = dir
	}
}

// Traverse walks root, keeps the files the filter accepts and tallies the
// files rejected for their extension. When maxBytes is positive and the
// running total of accepted sizes exceeds it, the walk stops at once and a
// *SizeLimitError is returned with no partial result.
func Traverse(ctx context.Context, root string, filter *Filter, maxBytes int64, logger *zap.Logger, opts ...TraverseOption) (*Traversal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var cfg traverseConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger.Debug("Starting file traversal and collection",
		zap.String("root", root),
		zap.String("matchRoot", cfg.matchRoot),
		zap.Int64("maxBytes", maxBytes))

	result := &Traversal{Tally: NewExtensionTally()}
	patternSkipped := 0

	for c, err := range Walk(root, logger) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if cfg.matchRoot != "" {
			c.MatchPath = rebase(cfg.matchRoot, c)
		}
		decision := filter.Decide(c.MatchPath, false)
		switch decision.Reason {
		case ReasonExtensionDisallowed:
			result.Tally.Add(Extension(path.Base(c.RelPath)))
			continue
		case ReasonPatternMatched:
			patternSkipped++
			logger.Debug("File matches ignore pattern",
				zap.String("matchPath", c.MatchPath),
				zap.String("pattern", decision.Pattern.Line))
			continue
		}

		result.TotalBytes += c.Size
		if maxBytes > 0 && result.TotalBytes > maxBytes {
			logger.Info("Size limit exceeded, stopping traversal",
				zap.Int64("maxBytes", maxBytes),
				zap.Int64("observedBytes", result.TotalBytes))
			return nil, &SizeLimitError{Limit: maxBytes, Observed: result.TotalBytes}
		}
		result.Files = append(result.Files, FileRecord{AbsPath: c.AbsPath, RelPath: c.RelPath, Size: c.Size})
	}

	logger.Debug("Completed file traversal and collection",
		zap.Int("eligibleFiles", len(result.Files)),
		zap.Int("extensionSkipped", result.Tally.Total()),
		zap.Int("patternSkipped", patternSkipped),
		zap.Int64("totalBytes", result.TotalBytes))
	return result, nil
}

// rebase returns the slash path of c relative to matchRoot. A candidate
// outside matchRoot keeps its own relative path.
func rebase(matchRoot string, c Candidate) string {
	rel, err := filepath.Rel(matchRoot, c.AbsPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return c.RelPath
	}
	return filepath.ToSlash(rel)
}

// ReportTally sends one aggregate event per distinct extension to sink,
// in extension order.
func ReportTally(tally *ExtensionTally, sink TelemetrySink) {
	if tally == nil || sink == nil {
		return
	}
	counts := tally.Snapshot()
	exts := make([]string, 0, len(counts))
	for ext := range counts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		sink.IgnoredExtension(counts[ext], ext)
	}
}
