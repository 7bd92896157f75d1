package bundle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultModTime is stamped on every archive entry so that identical inputs
// produce identical archive bytes. It is the earliest time a zip entry can
// carry.
var DefaultModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultMaxInFlightBytes bounds the file contents held in memory between
// reading and appending.
const DefaultMaxInFlightBytes int64 = 64 << 20

// Archive is a zip file written to a temporary location.
type Archive struct {
	Path         string
	Entries      int
	BytesWritten int64 // Uncompressed bytes of all entries.
	Skipped      int   // Files that vanished or could not be read.
}

// ArchiveOption configures an ArchiveWriter.
type ArchiveOption func(*archiveConfig)

type archiveConfig struct {
	workers   int
	batchSize int
	tempDir   string
	modTime   time.Time
	level     int
	inFlight  int64
}

// WithWorkers sets the number of concurrent readers. Values <= 0 use the
// number of CPUs.
func WithWorkers(n int) ArchiveOption {
	return func(c *archiveConfig) {
		c.workers = n
	}
}

// WithBatchSize sets how many files each read task handles.
func WithBatchSize(n int) ArchiveOption {
	return func(c *archiveConfig) {
		c.batchSize = n
	}
}

// WithTempDir sets the directory for the archive. Empty means os.TempDir.
func WithTempDir(dir string) ArchiveOption {
	return func(c *archiveConfig) {
		c.tempDir = dir
	}
}

// WithModTime sets the modification time stamped on entries.
func WithModTime(t time.Time) ArchiveOption {
	return func(c *archiveConfig) {
		c.modTime = t
	}
}

// WithCompressionLevel sets the deflate level (flate.NoCompression through
// flate.BestCompression).
func WithCompressionLevel(level int) ArchiveOption {
	return func(c *archiveConfig) {
		c.level = level
	}
}

// WithMaxInFlightBytes caps the bytes read ahead of the appender. Values
// <= 0 use DefaultMaxInFlightBytes. A batch larger than the cap is read on
// its own.
func WithMaxInFlightBytes(n int64) ArchiveOption {
	return func(c *archiveConfig) {
		c.inFlight = n
	}
}

// ArchiveWriter serializes a set of files into one zip archive. Files are
// read concurrently in batches; entries are appended by a single goroutine.
type ArchiveWriter struct {
	cfg    archiveConfig
	logger *zap.Logger
}

// NewArchiveWriter creates a writer with the given options.
func NewArchiveWriter(logger *zap.Logger, opts ...ArchiveOption) *ArchiveWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := archiveConfig{
		batchSize: DefaultBatchSize,
		modTime:   DefaultModTime,
		level:     flate.DefaultCompression,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.NumCPU()
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = DefaultBatchSize
	}
	if cfg.inFlight <= 0 {
		cfg.inFlight = DefaultMaxInFlightBytes
	}
	return &ArchiveWriter{cfg: cfg, logger: logger}
}

// Write archives files under their RelPath. Entries are written in RelPath
// order. Files missing at read time are left out. On failure the temporary
// file is removed and no Archive is returned.
func (w *ArchiveWriter) Write(ctx context.Context, files []FileRecord) (_ *Archive, err error) {
	sorted := make([]FileRecord, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RelPath < sorted[j].RelPath
	})

	out, err := os.CreateTemp(w.cfg.tempDir, "codebundle-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	archive := &Archive{Path: out.Name()}
	w.logger.Debug("Created archive file", zap.String("archivePath", archive.Path))

	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(archive.Path))
		}
	}()

	buffered := bufio.NewWriter(out)
	zw := zip.NewWriter(buffered)
	level := w.cfg.level
	zw.RegisterCompressor(zip.Deflate, func(dst io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(dst, level)
	})

	if appendErr := w.appendAll(ctx, zw, sorted, archive); appendErr != nil {
		return nil, multierr.Combine(appendErr, zw.Close(), out.Close())
	}

	if closeErr := multierr.Combine(zw.Close(), buffered.Flush(), out.Close()); closeErr != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", closeErr)
	}

	w.logger.Debug("Archive written",
		zap.String("archivePath", archive.Path),
		zap.Int("entries", archive.Entries),
		zap.Int("skipped", archive.Skipped),
		zap.Int64("bytesWritten", archive.BytesWritten))
	return archive, nil
}

// appendAll is the single consumer of the read pipeline.
func (w *ArchiveWriter) appendAll(ctx context.Context, zw *zip.Writer, files []FileRecord, archive *Archive) error {
	ctx, cancel := context.WithCancel(ctx)
	budget := semaphore.NewWeighted(w.cfg.inFlight)
	futures, wg := readBatches(ctx, splitBatches(files, w.cfg.batchSize), w.cfg.workers, budget, w.cfg.inFlight, w.logger)
	defer func() {
		cancel()
		wg.Wait()
	}()

	for future := range futures {
		res := <-future
		if res.err != nil {
			return res.err
		}
		archive.Skipped += res.skipped
		for _, e := range res.entries {
			if err := w.appendEntry(zw, e); err != nil {
				return err
			}
			archive.Entries++
			archive.BytesWritten += int64(len(e.data))
		}
		budget.Release(res.weight)
	}
	return ctx.Err()
}

func (w *ArchiveWriter) appendEntry(zw *zip.Writer, e entry) error {
	header := &zip.FileHeader{
		Name:     e.record.RelPath,
		Method:   zip.Deflate,
		Modified: w.cfg.modTime,
	}
	header.SetMode(0o644)

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write header for %s: %w", e.record.RelPath, err)
	}
	if _, err := fw.Write(e.data); err != nil {
		return fmt.Errorf("failed to write content for %s: %w", e.record.RelPath, err)
	}
	w.logger.Debug("Appended archive entry", zap.String("relPath", e.record.RelPath), zap.Int("sizeBytes", len(e.data)))
	return nil
}
