package service

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/anime-shed/webcritic-go/internal/logger"
)

// WorkerPool runs critique jobs on a bounded set of goroutines
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex
	closed bool

	totalJobs     int64
	completedJobs int64
	activeWorkers int64
}

// PoolStats is a point in time view of the pool counters
type PoolStats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
	QueuedJobs    int   `json:"queued_jobs"`
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		wp.run(job)
	}
}

func (wp *WorkerPool) run(job func()) {
	atomic.AddInt64(&wp.activeWorkers, 1)
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Worker job panicked")
		}
		atomic.AddInt64(&wp.activeWorkers, -1)
		atomic.AddInt64(&wp.completedJobs, 1)
		wp.wg.Done()
	}()
	job()
}

// Submit queues a job, blocking while the queue is full.
// It returns false once the pool is closed.
func (wp *WorkerPool) Submit(job func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}

	wp.wg.Add(1)
	atomic.AddInt64(&wp.totalJobs, 1)
	wp.jobQueue <- job
	return true
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Close stops accepting jobs and lets queued ones drain
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return
	}
	wp.closed = true
	close(wp.jobQueue)
}

// GetStats returns the current counters
func (wp *WorkerPool) GetStats() PoolStats {
	return PoolStats{
		Workers:       wp.workers,
		TotalJobs:     atomic.LoadInt64(&wp.totalJobs),
		CompletedJobs: atomic.LoadInt64(&wp.completedJobs),
		ActiveWorkers: atomic.LoadInt64(&wp.activeWorkers),
		QueuedJobs:    len(wp.jobQueue),
	}
}
