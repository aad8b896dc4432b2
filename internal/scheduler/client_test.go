package scheduler

import (
	"context"
	"testing"

	"outreach_backend/internal/batches"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

const pendingKey = "asynq:{outreach}:pending"

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := newClient(asynq.RedisClientOpt{Addr: mr.Addr()}, "outreach", nil)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func pending(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	if !mr.Exists(pendingKey) {
		return 0
	}
	items, err := mr.List(pendingKey)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	return len(items)
}

func TestEnqueueActionDropsDuplicates(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	approve := batches.Action{Kind: batches.ActionApprove, BatchID: "1_general", Version: 3}

	if err := c.EnqueueAction(ctx, approve); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := c.EnqueueAction(ctx, approve); err != nil {
		t.Fatalf("duplicate enqueue must not fail: %v", err)
	}
	if got := pending(t, mr); got != 1 {
		t.Fatalf("expected 1 pending task, got %d", got)
	}

	cancel := batches.Action{Kind: batches.ActionCancel, BatchID: "1_general", Version: 3}
	if err := c.EnqueueAction(ctx, cancel); err != nil {
		t.Fatalf("enqueue cancel: %v", err)
	}
	if got := pending(t, mr); got != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", got)
	}
}

func TestConfirmActionOutlivesActionTimeout(t *testing.T) {
	if got := actionTimeoutFor(batches.ActionConfirm); got != blastTimeout {
		t.Fatalf("confirm timeout = %s, want %s", got, blastTimeout)
	}
	if got := actionTimeoutFor(batches.ActionApprove); got != actionTimeout {
		t.Fatalf("approve timeout = %s, want %s", got, actionTimeout)
	}
}

func TestEnqueueCycleCollapsesTriggers(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	if err := c.EnqueueCycle(ctx, "schedule"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := c.EnqueueCycle(ctx, "api:ops@example.com"); err != nil {
		t.Fatalf("second trigger must not fail: %v", err)
	}
	if got := pending(t, mr); got != 1 {
		t.Fatalf("expected a single queued cycle, got %d", got)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected options %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS config")
	}

	plain, err := redisClientOpt("redis://localhost:6379/0", false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plain.TLSConfig != nil {
		t.Fatalf("expected no TLS for redis://")
	}
}
