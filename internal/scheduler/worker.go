package scheduler

import (
	"context"
	"fmt"
	"os"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/cycle"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ActionApplier executes an operator decision on a batch.
type ActionApplier interface {
	Apply(ctx context.Context, a batches.Action) (batches.Outcome, error)
}

// OutcomeReporter tells the operator how an action went.
type OutcomeReporter interface {
	Report(ctx context.Context, out batches.Outcome, err error) error
}

type CycleRunner interface {
	Run(ctx context.Context) cycle.Report
}

type CacheInvalidator interface {
	Invalidate()
}

// WorkerDeps wires the task handlers. CompanyInfo may be nil.
type WorkerDeps struct {
	Actions     ActionApplier
	Reporter    OutcomeReporter
	Cycle       CycleRunner
	CompanyInfo CacheInvalidator
	Log         *logger.Logger
}

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	actions     ActionApplier
	reporter    OutcomeReporter
	cycle       CycleRunner
	companyInfo CacheInvalidator
	batchLocks  *keyedMutex
	log         *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, d WorkerDeps) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	w := newWorker(d)
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		Logger: asynqLogger{w.log},
	})
	return w, nil
}

func newWorker(d WorkerDeps) *Worker {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	w := &Worker{
		mux:         asynq.NewServeMux(),
		actions:     d.Actions,
		reporter:    d.Reporter,
		cycle:       d.Cycle,
		companyInfo: d.CompanyInfo,
		batchLocks:  newKeyedMutex(),
		log:         d.Log,
	}

	w.mux.HandleFunc(TaskBatchAction, w.handleBatchAction)
	w.mux.HandleFunc(TaskCycleRun, w.handleCycleRun)
	w.mux.HandleFunc(TaskCompanyInfoRefresh, w.handleCompanyInfoRefresh)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleBatchAction applies one action while holding the batch lock, so
// concurrent decisions on the same batch run one after the other. Domain
// failures are reported to the operator and never retried.
func (w *Worker) handleBatchAction(ctx context.Context, task *asynq.Task) error {
	a, err := ParseBatchActionPayload(task)
	if err != nil {
		return fmt.Errorf("parse batch action: %v: %w", err, asynq.SkipRetry)
	}

	unlock := w.batchLocks.Lock(a.BatchID)
	defer unlock()

	log := w.log.WithBatchID(a.BatchID)
	out, err := w.actions.Apply(ctx, a)
	if err != nil {
		log.Warn("batch action failed", "action", a.Kind, "user", a.User, "error", err)
	} else {
		log.Info("batch action applied", "action", a.Kind, "user", a.User)
	}

	if w.reporter != nil {
		if rerr := w.reporter.Report(ctx, out, err); rerr != nil {
			log.ExternalCallFailed("slack", "report_outcome", rerr)
		}
	}
	return nil
}

func (w *Worker) handleCycleRun(ctx context.Context, _ *asynq.Task) error {
	report := w.cycle.Run(ctx)
	if failed := report.Failed(); failed > 0 {
		w.log.Warn("cycle finished with failures", "failed_steps", failed)
	}
	return nil
}

func (w *Worker) handleCompanyInfoRefresh(_ context.Context, _ *asynq.Task) error {
	if w.companyInfo != nil {
		w.companyInfo.Invalidate()
		w.log.Info("company info cache invalidated")
	}
	return nil
}

// asynqLogger routes asynq's internal logging through the service logger.
type asynqLogger struct{ log *logger.Logger }

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(fmt.Sprint(args...))
	os.Exit(1)
}
