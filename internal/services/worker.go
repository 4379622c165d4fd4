package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"vardhanvasista/fresalyzer/internal/repositories"
)

var ErrQueueFull = errors.New("run queue is full")

const interruptedRunMessage = "Run interrupted: the server stopped before it finished. Please submit it again."

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(job RunJob) error
}

type worker struct {
	runRepo     repositories.RunRepository
	executor    RunExecutor
	jobQueue    chan RunJob
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	cancel      context.CancelFunc
}

func NewWorker(
	runRepo repositories.RunRepository,
	executor RunExecutor,
	concurrency int,
	queueSize int,
) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	return &worker{
		runRepo:     runRepo,
		executor:    executor,
		jobQueue:    make(chan RunJob, queueSize),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting worker with %d concurrent workers\n", w.concurrency)

	ctx, w.cancel = context.WithCancel(ctx)
	w.failInterruptedRuns()

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	log.Println("✅ Worker started successfully")
}

// Stop implements Worker. Runs in progress are cancelled.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		log.Println("🛑 Stopping worker...")
		close(w.stopChan)
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		log.Println("✅ Worker stopped")
	})
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(job RunJob) error {
	select {
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue run %s\n", job.RunID)
		return errors.New("worker stopped")
	default:
	}

	select {
	case w.jobQueue <- job:
		log.Printf("📥 Run %s enqueued\n", job.RunID)
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log.Printf("🚀 Worker %d started processing jobs\n", workerID)

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped\n", workerID)
			return
		case job := <-w.jobQueue:
			log.Printf("👷 Worker #%d processing run %s\n", workerID, job.RunID)
			if err := w.executor.Execute(ctx, job); err != nil {
				log.Printf("❌ Worker #%d failed to process run %s: %v\n", workerID, job.RunID, err)
			} else {
				log.Printf("✅ Worker #%d completed run %s\n", workerID, job.RunID)
			}
		}
	}
}

// failInterruptedRuns closes out runs left queued or processing by a previous
// process. Their API keys were never stored, so they cannot be resumed.
func (w *worker) failInterruptedRuns() {
	runs, err := w.runRepo.FindUnfinished(1000)
	if err != nil {
		log.Printf("⚠️  Failed to fetch unfinished runs: %v\n", err)
		return
	}

	if len(runs) > 0 {
		log.Printf("📋 Found %d interrupted runs\n", len(runs))
	}

	for _, run := range runs {
		if err := w.runRepo.UpdateError(run.ID, interruptedRunMessage); err != nil {
			log.Printf("⚠️  Failed to mark run %s as interrupted: %v\n", run.ID, err)
		}
	}
}
