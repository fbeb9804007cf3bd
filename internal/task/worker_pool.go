package task

import (
	"context"
	"log/slog"
	"sync"
)

// JobExecutor runs one job attempt end to end, including status
// bookkeeping. The engine implements this; the pool stays a dumb consumer.
type JobExecutor interface {
	ExecuteJob(ctx context.Context, job *Job)
}

// WorkerPool manages a pool of worker goroutines that consume jobs from a
// queue and hand them to the executor. It handles graceful shutdown and
// worker lifecycle. The contracts of the engine hold under any worker
// count; the pool size only tunes parallelism.
type WorkerPool struct {
	// queue provides read access to the jobs to be processed
	queue QueueReader

	// executor runs each job
	executor JobExecutor

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger
}

// NewWorkerPool creates a worker pool reading from the queue. A worker
// count below 1 is coerced to 1.
func NewWorkerPool(
	queue QueueReader,
	executor JobExecutor,
	workerCount int,
	logger *slog.Logger,
) *WorkerPool {
	if workerCount < 1 {
		logger.Warn("invalid worker count specified, using 1",
			"specified_count", workerCount)
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:       queue,
		executor:    executor,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "worker_count", p.workerCount)
}

// Stop signals all workers to finish their current job and exit, then
// waits for them.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker consumes jobs until the pool is stopped or the queue is closed.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-p.queue.GetChannel():
			if !ok {
				p.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}
			p.executor.ExecuteJob(p.ctx, job)
		}
	}
}
