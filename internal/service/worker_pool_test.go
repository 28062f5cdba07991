package service

import (
	"runtime"
	"sync"
	"testing"
)

func TestNewWorkerPool_ZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	if pool.GetStats().Workers != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), pool.GetStats().Workers)
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			mu.Lock()
			counter++
			mu.Unlock()
		})
	}

	pool.Wait()

	if counter != 5 {
		t.Errorf("Expected counter to be 5, got %d", counter)
	}
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)

	// Start should be idempotent
	pool.Start()
	pool.Start()
	defer pool.Close()

	var executed bool
	pool.Submit(func() {
		executed = true
	})

	pool.Wait()

	if !executed {
		t.Error("Expected job to be executed")
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	pool.Close()
	pool.Close()

	if pool.Submit(func() {}) {
		t.Error("Expected submit after close to be refused")
	}
}

func TestWorkerPool_PanickingJobIsCounted(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	defer pool.Close()

	pool.Submit(func() { panic("boom") })
	ran := false
	pool.Submit(func() { ran = true })
	pool.Wait()

	if !ran {
		t.Error("Expected the pool to keep working after a panic")
	}
	stats := pool.GetStats()
	if stats.CompletedJobs != 2 || stats.ActiveWorkers != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestWorkerPool_AtomicCounters(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Close()

	const numJobs = 25
	for i := 0; i < numJobs; i++ {
		pool.Submit(func() {
			for j := 0; j < 1000; j++ {
				_ = j * j
			}
		})
	}

	pool.Wait()

	stats := pool.GetStats()
	if stats.TotalJobs != numJobs {
		t.Errorf("Expected %d total jobs, got %d", numJobs, stats.TotalJobs)
	}
	if stats.CompletedJobs != numJobs {
		t.Errorf("Expected %d completed jobs, got %d", numJobs, stats.CompletedJobs)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("Expected 0 active workers after completion, got %d", stats.ActiveWorkers)
	}
}
