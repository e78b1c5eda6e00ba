package backup

import (
	"context"
	"sync"

	"pg-tenant-backup/internal/logging"
)

// pipelineTask is one queued backup pipeline execution
type pipelineTask struct {
	job *BackupJob
	run func(ctx context.Context, job *BackupJob)
}

// workerPool bounds pipeline concurrency with a fixed set of workers fed
// from a buffered queue. Submission never blocks: a full queue is reported
// to the caller so the job can be failed instead of silently stalled.
type workerPool struct {
	tasks   chan pipelineTask
	workers int
	logger  *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// newWorkerPool creates a pool with the given worker count and queue depth
func newWorkerPool(workers, queueSize int, logger *logging.Logger) *workerPool {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &workerPool{
		tasks:   make(chan pipelineTask, queueSize),
		workers: workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines. Calling Start twice is a no-op.
func (p *workerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	p.logger.WithFields(map[string]interface{}{
		"workers":    p.workers,
		"queue_size": cap(p.tasks),
	}).Debug("Backup worker pool started")
}

// Submit enqueues a pipeline task. It returns false when the queue is full
// or the pool is stopped; the caller owns recording the job's failure.
func (p *workerPool) Submit(task pipelineTask) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop drains the queue and waits for in-flight pipelines to finish
func (p *workerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	p.logger.Debug("Backup worker pool stopped")
}

func (p *workerPool) work(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.logger.WithFields(map[string]interface{}{
			"worker": id,
			"job_id": task.job.ID,
			"tenant": task.job.TenantID,
		}).Debug("Worker picked up backup job")
		task.run(p.ctx, task.job)
	}
}
