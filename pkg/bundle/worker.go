package bundle

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// entry is one file read for the archive.
type entry struct {
	record FileRecord
	data   []byte
}

// batchResult holds the files of one batch that could still be read, in
// batch order.
type batchResult struct {
	entries []entry
	skipped int
	weight  int64 // Budget held until the batch is appended.
	err     error
}

// batchJob asks a worker to read files and deliver them on out.
type batchJob struct {
	id     int
	files  []FileRecord
	weight int64
	out    chan<- batchResult
}

// splitBatches groups files into slices of at most size elements.
func splitBatches(files []FileRecord, size int) [][]FileRecord {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]FileRecord, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		batches = append(batches, files[start:end])
	}
	return batches
}

// batchWeight is the budget a batch holds while it is read and waiting to
// be appended: its traversal-time size, capped at limit so that a single
// oversized batch can still run alone.
func batchWeight(files []FileRecord, limit int64) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return min(total, limit)
}

// readBatches starts maxWorkers readers and returns a channel of per-batch
// futures in batch order. A batch is dispatched only once its weight fits
// in budget; the consumer releases batchResult.weight after appending. The
// caller must drain the channel or cancel ctx, then wait on the returned
// WaitGroup.
func readBatches(ctx context.Context, batches [][]FileRecord, maxWorkers int, budget *semaphore.Weighted, limit int64, logger *zap.Logger) (<-chan chan batchResult, *sync.WaitGroup) {
	jobs := make(chan batchJob, maxWorkers)
	futures := make(chan chan batchResult, maxWorkers)
	var wg sync.WaitGroup

	logger.Debug("Initializing worker pool", zap.Int("workers", maxWorkers), zap.Int("batches", len(batches)))
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go worker(ctx, w, jobs, &wg, logger.With(zap.Int("workerID", w)))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(futures)
		defer close(jobs)

		for i, batch := range batches {
			weight := batchWeight(batch, limit)
			if err := budget.Acquire(ctx, weight); err != nil {
				return
			}
			out := make(chan batchResult, 1)
			select {
			case jobs <- batchJob{id: i, files: batch, weight: weight, out: out}:
			case <-ctx.Done():
				return
			}
			select {
			case futures <- out:
			case <-ctx.Done():
				return
			}
		}
	}()

	return futures, &wg
}

// worker reads batches from jobs until the channel is closed.
func worker(ctx context.Context, id int, jobs <-chan batchJob, wg *sync.WaitGroup, logger *zap.Logger) {
	defer wg.Done()

	for job := range jobs {
		logger.Debug("Worker received batch", zap.Int("batch", job.id), zap.Int("files", len(job.files)))
		res := readBatch(ctx, job.files, logger)
		res.weight = job.weight
		job.out <- res
	}
	logger.Debug("Worker finished processing", zap.Int("workerID", id))
}

// readBatch reads every file of a batch. Files that disappeared or cannot
// be read are skipped.
func readBatch(ctx context.Context, files []FileRecord, logger *zap.Logger) batchResult {
	var res batchResult
	res.entries = make([]entry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			res.skipped++
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("File vanished before it could be read", zap.String("filePath", f.AbsPath))
			} else {
				logger.Warn("Failed to read file, skipping", zap.String("filePath", f.AbsPath), zap.Error(err))
			}
			continue
		}
		res.entries = append(res.entries, entry{record: f, data: data})
	}
	return res
}
