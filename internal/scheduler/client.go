package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"outreach_backend/internal/batches"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	actionUniqueTTL = time.Minute
	actionTimeout   = 15 * time.Minute
	blastTimeout    = 24 * time.Hour
	cycleUniqueTTL  = 30 * time.Minute
	cycleTimeout    = 2 * time.Hour
	refreshRetries  = 3
)

type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newClient(opt, cfg.GetAsynqQueueName(), log), nil
}

func newClient(opt asynq.RedisConnOpt, queue string, log *logger.Logger) *Client {
	if queue == "" {
		queue = "default"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
		log:    log,
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAction queues an operator decision. Actions are never retried:
// the outcome, failure included, is reported back to the operator, who can
// press again. An identical action already queued is dropped.
func (c *Client) EnqueueAction(ctx context.Context, a batches.Action) error {
	task, err := NewBatchActionTask(a)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
		asynq.Timeout(actionTimeoutFor(a.Kind)),
		asynq.Unique(actionUniqueTTL),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		c.log.WithBatchID(a.BatchID).Info("duplicate batch action dropped", "action", a.Kind)
		return nil
	}
	return err
}

// actionTimeoutFor bounds a queued action. A confirm sends to the whole
// cohort through a rate-limited mailbox and must not be cut short.
func actionTimeoutFor(kind batches.ActionKind) time.Duration {
	if kind == batches.ActionConfirm {
		return blastTimeout
	}
	return actionTimeout
}

// EnqueueCycle queues a cadence cycle unless one is already waiting.
func (c *Client) EnqueueCycle(ctx context.Context, trigger string) error {
	_, err := c.client.EnqueueContext(ctx, NewCycleRunTask(),
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
		asynq.Timeout(cycleTimeout),
		asynq.Unique(cycleUniqueTTL),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		c.log.Info("cycle already queued", "trigger", trigger)
		return nil
	}
	if err == nil {
		c.log.Info("cycle queued", "trigger", trigger)
	}
	return err
}

func (c *Client) EnqueueCompanyInfoRefresh(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewCompanyInfoRefreshTask(),
		asynq.Queue(c.queue),
		asynq.MaxRetry(refreshRetries),
	)
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
