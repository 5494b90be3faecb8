package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"bup/pkg/logger"
	"bup/pkg/ratelimit"
)

// AssetJob is one image to mirror into the site.
type AssetJob struct {
	UID string
	URL string
	// Path is relative to the doc dir, slash separated.
	Path string
}

// AssetResult is the outcome of an AssetJob.
type AssetResult struct {
	Job      AssetJob
	Success  bool
	Error    error
	Duration time.Duration
	Size     int
}

// Fetcher downloads the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AssetStorage persists a downloaded asset.
type AssetStorage interface {
	Save(rel string, r io.Reader) error
}

// WorkerPool downloads assets with a fixed number of workers.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan AssetJob
	resultQueue chan AssetResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     Fetcher
	storage     AssetStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx. A nil limiter means no pacing.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	fetcher Fetcher,
	storage AssetStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan AssetJob, numWorkers*2),
		resultQueue: make(chan AssetResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting asset workers", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for queued jobs and closes Results.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job. It fails once the pool's context is done.
func (wp *WorkerPool) Submit(job AssetJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel. It must be drained while jobs run.
func (wp *WorkerPool) Results() <-chan AssetResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job AssetJob, workerID int) AssetResult {
	start := time.Now()
	result := AssetResult{Job: job}

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	data, err := wp.fetcher.Fetch(wp.ctx, job.URL)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.Size = len(data)

	if err := wp.storage.Save(job.Path, bytes.NewReader(data)); err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)

	wp.logger.DebugWithFields("Asset saved", map[string]interface{}{
		"worker_id": workerID,
		"uid":       job.UID,
		"path":      job.Path,
		"size":      result.Size,
		"duration":  result.Duration,
	})
	return result
}

// DownloadAll runs every job through a fresh pool and returns the results
// in completion order. Individual failures are reported in the results and
// logged; they never abort the batch.
func DownloadAll(
	ctx context.Context,
	numWorkers int,
	fetcher Fetcher,
	storage AssetStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
	jobs []AssetJob,
) []AssetResult {
	if log == nil {
		log = logger.NewNopLogger()
	}
	pool := NewWorkerPool(ctx, numWorkers, fetcher, storage, rateLimiter, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	results := make([]AssetResult, 0, len(jobs))
	for result := range pool.Results() {
		if result.Error != nil {
			logger.LogDownload(log, result.Job.UID, result.Job.Path, result.Error)
		}
		results = append(results, result)
	}
	return results
}
