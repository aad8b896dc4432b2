package batches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"outreach_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "cadence:proposal:"
	indexKey         = "cadence:proposals"
	versionKey       = "cadence:proposal_version"
	maxUpsertRetries = 5
	defaultTTL       = 72 * time.Hour
)

// Store persists proposals. Upsert is atomic per id.
type Store interface {
	Get(ctx context.Context, id string) (Proposal, error)
	List(ctx context.Context) ([]Proposal, error)
	// Upsert passes the current record (nil when absent) to fn and stores
	// what it returns. An error from fn aborts without writing.
	Upsert(ctx context.Context, id string, fn func(current *Proposal) (Proposal, error)) (Proposal, error)
	// NextVersion returns a process-independent increasing version number.
	NextVersion(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each proposal as a JSON value with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient opens the proposal store connection from cfg.
func NewRedisClient(cfg config.ProposalStoreConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() && opt.TLSConfig != nil {
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (Proposal, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Proposal{}, ErrProposalNotFound
	}
	if err != nil {
		return Proposal{}, err
	}
	return decode(data)
}

func (s *RedisStore) List(ctx context.Context) ([]Proposal, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Proposal, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if errors.Is(err, ErrProposalNotFound) {
			s.rdb.SRem(ctx, indexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RedisStore) Upsert(ctx context.Context, id string, fn func(current *Proposal) (Proposal, error)) (Proposal, error) {
	key := keyPrefix + id
	var stored Proposal

	txf := func(tx *redis.Tx) error {
		var current *Proposal
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			p, err := decode(data)
			if err != nil {
				return err
			}
			current = &p
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		next.ID = id
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			pipe.SAdd(ctx, indexKey, id)
			return nil
		})
		if err == nil {
			stored = next
		}
		return err
	}

	for i := 0; i < maxUpsertRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Proposal{}, err
		}
		return stored, nil
	}
	return Proposal{}, fmt.Errorf("proposal %s: too much contention", id)
}

func (s *RedisStore) NextVersion(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, versionKey).Result()
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyPrefix+id)
		pipe.SRem(ctx, indexKey, id)
		return nil
	})
	return err
}

func decode(data []byte) (Proposal, error) {
	var p Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		return Proposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	return p, nil
}
