// Package bundle selects the files of a workspace that may be uploaded,
// enforces a size ceiling and writes them into a checksummed zip archive.
package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eamonnfaherty/codebundle/pkg/ignore"
)

// Options holds the configuration of one bundling operation.
type Options struct {
	Root       string   // Project root directory.
	Subfolder  string   // Optional narrower folder inside Root used as the bundling root.
	Extensions []string // Source-code extension allow-list; empty means DefaultExtensions.
	IgnoreFile string   // Ignore file path; empty means <Root>/.gitignore.
	MaxBytes   int64    // Ceiling for the sum of eligible file sizes; <= 0 means unbounded.
	Workers    int      // Concurrent archive readers; <= 0 means the number of CPUs.
	BatchSize  int      // Files per read task; <= 0 means DefaultBatchSize.
	TempDir    string   // Directory for the archive; empty means os.TempDir.

	// CompressionLevel is the deflate level from 1 to 9; 0 keeps the
	// compressor default.
	CompressionLevel int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTelemetry sets the sink for ignored-extension counts.
func WithTelemetry(sink TelemetrySink) ServiceOption {
	return func(s *Service) {
		s.telemetry = sink
	}
}

// WithProgress sets the progress scope wrapped around a bundle run.
func WithProgress(p Progress) ServiceOption {
	return func(s *Service) {
		s.progress = p
	}
}

// Service orchestrates traversal, archiving and checksumming.
type Service struct {
	opts      Options
	logger    *zap.Logger
	telemetry TelemetrySink
	progress  Progress
}

// New creates a Service.
func New(opts Options, logger *zap.Logger, serviceOpts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		opts:      opts,
		logger:    logger,
		telemetry: nopSink{},
		progress:  nopProgress{},
	}
	for _, opt := range serviceOpts {
		opt(s)
	}
	return s
}

// Root resolves the bundling root for the configured options.
func (s *Service) Root() (string, error) {
	return ResolveRoot(s.opts.Root, s.opts.Subfolder)
}

// Scan walks the bundling root and returns the eligible files without
// writing an archive. The ignored-extension tally is reported to the
// telemetry sink.
func (s *Service) Scan(ctx context.Context) (*Traversal, error) {
	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, root)
}

// Filter loads the ignore patterns and builds the eligibility filter for
// the configured options.
func (s *Service) Filter() *Filter {
	patterns := ignore.Load(ignore.StaticRules(), s.ignoreFilePath(), s.logger)
	s.logger.Debug("Loaded ignore patterns", zap.Int("totalPatterns", patterns.Len()))

	exts := s.opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions()
	}
	return NewFilter(NewExtensionSet(exts...), patterns)
}

func (s *Service) scan(ctx context.Context, root string) (*Traversal, error) {
	filter := s.Filter()

	var traverseOpts []TraverseOption
	if projectRoot, err := filepath.Abs(s.opts.Root); err == nil && projectRoot != root {
		traverseOpts = append(traverseOpts, WithMatchRoot(projectRoot))
	}
	trav, err := Traverse(ctx, root, filter, s.opts.MaxBytes, s.logger, traverseOpts...)
	if err != nil {
		return nil, err
	}
	ReportTally(trav.Tally, s.telemetry)
	return trav, nil
}

func (s *Service) ignoreFilePath() string {
	if s.opts.IgnoreFile != "" {
		return s.opts.IgnoreFile
	}
	absRoot, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return ""
	}
	return filepath.Join(absRoot, ".gitignore")
}

// Bundle produces the archive. The returned archive file belongs to the
// caller. Errors are ErrNoRoot, a *SizeLimitError, or an I/O failure.
func (s *Service) Bundle(ctx context.Context) (*Result, error) {
	root, err := s.Root()
	if err != nil {
		s.logger.Error("Failed to resolve bundling root", zap.Error(err))
		return nil, err
	}

	var result *Result
	err = s.progress.Run(ctx, "Bundling "+root, func(ctx context.Context) error {
		r, err := s.run(ctx, root)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, root string) (*Result, error) {
	startTime := time.Now()
	s.logger.Info("Starting bundle", zap.String("root", root), zap.Int64("maxBytes", s.opts.MaxBytes))

	trav, err := s.scan(ctx, root)
	if err != nil {
		return nil, err
	}

	archiveOpts := []ArchiveOption{
		WithWorkers(s.opts.Workers),
		WithBatchSize(s.opts.BatchSize),
		WithTempDir(s.opts.TempDir),
	}
	if s.opts.CompressionLevel > 0 {
		archiveOpts = append(archiveOpts, WithCompressionLevel(s.opts.CompressionLevel))
	}
	writer := NewArchiveWriter(s.logger, archiveOpts...)
	archive, err := writer.Write(ctx, trav.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}

	// Files may have grown between traversal and read.
	if s.opts.MaxBytes > 0 && archive.BytesWritten > s.opts.MaxBytes {
		sizeErr := &SizeLimitError{Limit: s.opts.MaxBytes, Observed: archive.BytesWritten}
		return nil, multierr.Append(sizeErr, os.Remove(archive.Path))
	}

	checksum, err := Checksum(archive.Path)
	if err != nil {
		return nil, multierr.Append(err, os.Remove(archive.Path))
	}
	info, err := os.Stat(archive.Path)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to stat archive: %w", err), os.Remove(archive.Path))
	}

	result := &Result{
		ArchivePath:      archive.Path,
		Checksum:         checksum,
		TotalSizeBytes:   archive.BytesWritten,
		FileCount:        archive.Entries,
		ArchiveSizeBytes: info.Size(),
	}
	s.logger.Info("Bundle completed",
		zap.String("archivePath", result.ArchivePath),
		zap.Int("files", result.FileCount),
		zap.String("totalSize", humanize.Bytes(uint64(result.TotalSizeBytes))),
		zap.String("archiveSize", humanize.Bytes(uint64(result.ArchiveSizeBytes))),
		zap.Duration("elapsed", time.Since(startTime)))
	return result, nil
}
