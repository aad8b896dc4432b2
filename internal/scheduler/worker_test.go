package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/cycle"

	"github.com/hibiken/asynq"
)

type fakeApplier struct {
	mu      sync.Mutex
	applied []batches.Action
	active  int32
	maxSeen int32
	err     error
}

func (f *fakeApplier) Apply(_ context.Context, a batches.Action) (batches.Outcome, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.applied = append(f.applied, a)
	f.mu.Unlock()
	return batches.Outcome{Action: a}, f.err
}

type fakeReporter struct {
	mu   sync.Mutex
	errs []error
}

func (f *fakeReporter) Report(_ context.Context, _ batches.Outcome, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
	return nil
}

type fakeCycle struct{ runs int }

func (f *fakeCycle) Run(context.Context) cycle.Report {
	f.runs++
	return cycle.Report{Steps: []cycle.StepResult{{Name: cycle.StepReplies, Error: "gmail quota"}}}
}

type fakeCache struct{ invalidated int }

func (f *fakeCache) Invalidate() { f.invalidated++ }

func actionTask(t *testing.T, a batches.Action) *asynq.Task {
	t.Helper()
	task, err := NewBatchActionTask(a)
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	return task
}

func TestBatchActionIsAppliedAndReported(t *testing.T) {
	applier := &fakeApplier{err: batches.ErrStaleProposal}
	reporter := &fakeReporter{}
	w := newWorker(WorkerDeps{Actions: applier, Reporter: reporter})

	a := batches.Action{Kind: batches.ActionConfirm, BatchID: "2_ai", Version: 4, ResponseURL: "https://hooks.slack.test/r"}
	if err := w.handleBatchAction(context.Background(), actionTask(t, a)); err != nil {
		t.Fatalf("domain failures must not fail the task: %v", err)
	}
	if len(applier.applied) != 1 || applier.applied[0] != a {
		t.Fatalf("expected action applied as queued, got %+v", applier.applied)
	}
	if len(reporter.errs) != 1 || !errors.Is(reporter.errs[0], batches.ErrStaleProposal) {
		t.Fatalf("expected failure reported, got %v", reporter.errs)
	}
}

func TestBatchActionsAreSerializedPerBatch(t *testing.T) {
	applier := &fakeApplier{}
	w := newWorker(WorkerDeps{Actions: applier, Reporter: &fakeReporter{}})

	var tasks []*asynq.Task
	for _, kind := range []batches.ActionKind{batches.ActionApprove, batches.ActionConfirm, batches.ActionCancel} {
		tasks = append(tasks, actionTask(t, batches.Action{Kind: kind, BatchID: "1_general"}))
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task *asynq.Task) {
			defer wg.Done()
			_ = w.handleBatchAction(context.Background(), task)
		}(task)
	}
	wg.Wait()

	if applier.maxSeen != 1 {
		t.Fatalf("expected one action at a time, saw %d concurrent", applier.maxSeen)
	}
	if w.batchLocks.size() != 0 {
		t.Fatalf("expected lock entries released")
	}
}

func TestMalformedActionIsNotRetried(t *testing.T) {
	w := newWorker(WorkerDeps{Actions: &fakeApplier{}})

	err := w.handleBatchAction(context.Background(), asynq.NewTask(TaskBatchAction, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestCycleAndRefreshTasks(t *testing.T) {
	runner := &fakeCycle{}
	cache := &fakeCache{}
	w := newWorker(WorkerDeps{Cycle: runner, CompanyInfo: cache})

	if err := w.handleCycleRun(context.Background(), NewCycleRunTask()); err != nil {
		t.Fatalf("cycle task: %v", err)
	}
	if err := w.handleCompanyInfoRefresh(context.Background(), NewCompanyInfoRefreshTask()); err != nil {
		t.Fatalf("refresh task: %v", err)
	}
	if runner.runs != 1 || cache.invalidated != 1 {
		t.Fatalf("expected one run and one invalidation, got %d/%d", runner.runs, cache.invalidated)
	}
}

type cancellingQueue struct {
	cancel   context.CancelFunc
	triggers []string
}

func (q *cancellingQueue) EnqueueCycle(_ context.Context, trigger string) error {
	q.triggers = append(q.triggers, trigger)
	q.cancel()
	return nil
}

func TestCycleTickerEnqueuesOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := &cancellingQueue{cancel: cancel}

	NewCycleTicker(q, time.Hour, nil).Run(ctx)

	if len(q.triggers) != 1 || q.triggers[0] != "schedule" {
		t.Fatalf("expected one scheduled trigger, got %v", q.triggers)
	}
}
