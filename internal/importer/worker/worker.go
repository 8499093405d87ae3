// Package worker hosts the import consumer pool and the reconciliation
// sweep schedule.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/internal/importer/service"
	"github.com/belugamedia/beluga/internal/infrastructure/queue"
	"github.com/belugamedia/beluga/pkg/interfaces"
)

// Worker drains the job queue with a pool of consumers and periodically runs
// the staleness sweep. Distinct jobs may run in parallel; each job's pipeline
// is sequential inside the service.
type Worker struct {
	consumer      queue.Consumer
	importer      *service.ImporterService
	logger        interfaces.Logger
	concurrency   int
	sweepInterval time.Duration
}

// New creates a worker. Zero concurrency defaults to 1; zero sweepInterval
// disables the reconciliation schedule (for deployments that trigger the
// sweep externally).
func New(
	consumer queue.Consumer,
	importer *service.ImporterService,
	logger interfaces.Logger,
	concurrency int,
	sweepInterval time.Duration,
) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		consumer:      consumer,
		importer:      importer,
		logger:        logger,
		concurrency:   concurrency,
		sweepInterval: sweepInterval,
	}
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := w.consumer.Consume(ctx, w.handle); err != nil && ctx.Err() == nil {
				w.logger.Error("Import consumer stopped",
					interfaces.Int("consumer", n),
					interfaces.Error(err))
			}
		}(i)
	}

	if w.sweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runSweep(ctx)
		}()
	}

	w.logger.Info("Import worker started",
		interfaces.Int("concurrency", w.concurrency),
		interfaces.Any("sweep_interval", w.sweepInterval))

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (w *Worker) handle(ctx context.Context, job *domain.ImportJob) error {
	w.logger.Info("Processing import job",
		interfaces.String("job_id", job.JobID),
		interfaces.String("user_id", job.UserID.String()),
		interfaces.String("source", string(job.Input.Source)))
	return w.importer.ImportFromSource(ctx, job.UserID, job.Input)
}

func (w *Worker) runSweep(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			invalidated, err := w.importer.InvalidateStaleReports(ctx)
			if err != nil {
				w.logger.Error("Reconciliation sweep failed", interfaces.Error(err))
				continue
			}
			if invalidated > 0 {
				w.logger.Info("Reconciliation sweep finished",
					interfaces.Int("invalidated", invalidated))
			}
		}
	}
}
